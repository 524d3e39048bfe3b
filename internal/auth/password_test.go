package auth

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/college-erp/internal"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

var _ = ginkgo.Describe("PasswordManager", func() {
	var (
		manager PasswordManager
		repo    *mockRepository
		user    *userDatamodel.User
	)

	ginkgo.BeforeEach(func() {
		manager = NewPasswordManager(bcrypt.MinCost, 5)
		user = &userDatamodel.User{
			UserID:   "EM2023T001",
			Username: "EM2023T001",
			Email:    "teacher@college.edu",
			IsActive: true,
		}
		repo = newMockRepository(user)
	})

	ginkgo.Describe("Hash and Compare", func() {
		ginkgo.It("round-trips a credential", func() {
			// When
			hash, err := manager.Hash("S3cret!pass")

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(manager.Compare(hash, "S3cret!pass")).To(gomega.BeTrue())
			gomega.Expect(manager.Compare(hash, "wrong")).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("CheckHistory", func() {
		ginkgo.It("rejects the current password", func() {
			// Given
			hash, err := manager.Hash("Current!pass1")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			user.PasswordHash = hash

			// When
			err = manager.CheckHistory(repo, user, "Current!pass1")

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrPasswordReuse))
		})

		ginkgo.It("rejects a password from the retained history", func() {
			// Given
			oldHash, err := manager.Hash("Retired!pass1")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(repo.AppendPasswordHistory(user.UserID, oldHash)).To(gomega.Succeed())

			// When
			err = manager.CheckHistory(repo, user, "Retired!pass1")

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrPasswordReuse))
		})

		ginkgo.It("accepts a password never used before", func() {
			// Given
			hash, err := manager.Hash("Current!pass1")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			user.PasswordHash = hash

			// When
			err = manager.CheckHistory(repo, user, "Brand!new2")

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("SetPassword", func() {
		ginkgo.It("rotates the credential and appends to the history", func() {
			// Given
			hash, err := manager.Hash("Current!pass1")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			user.PasswordHash = hash

			// When
			err = manager.SetPassword(repo, user, "Brand!new2")

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(manager.Compare(user.PasswordHash, "Brand!new2")).To(gomega.BeTrue())
			gomega.Expect(user.PasswordChangedAt).NotTo(gomega.BeNil())
			gomega.Expect(repo.history[user.UserID]).To(gomega.HaveLen(1))
			gomega.Expect(repo.trimmedTo).To(gomega.Equal(5))
		})

		ginkgo.It("skips the reuse check and history for a first-time credential", func() {
			// When
			err := manager.SetPassword(repo, user, "First!pass1")

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(manager.Compare(user.PasswordHash, "First!pass1")).To(gomega.BeTrue())
			gomega.Expect(repo.history[user.UserID]).To(gomega.BeEmpty())
		})

		ginkgo.It("refuses to rotate to a reused password", func() {
			// Given
			hash, err := manager.Hash("Current!pass1")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			user.PasswordHash = hash

			// When
			err = manager.SetPassword(repo, user, "Current!pass1")

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrPasswordReuse))
			gomega.Expect(user.PasswordHash).To(gomega.Equal(hash))
		})
	})
})

var _ = ginkgo.Describe("MaskEmail", func() {
	ginkgo.It("masks the local part past the third character", func() {
		gomega.Expect(MaskEmail("john.doe@college.edu")).To(gomega.Equal("joh*****@college.edu"))
	})

	ginkgo.It("leaves short local parts untouched", func() {
		gomega.Expect(MaskEmail("ab@college.edu")).To(gomega.Equal("ab@college.edu"))
	})

	ginkgo.It("leaves malformed addresses untouched", func() {
		gomega.Expect(MaskEmail("no")).To(gomega.Equal("no"))
	})
})
