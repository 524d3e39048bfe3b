package auth

import (
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/college-erp/internal"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

var _ = ginkgo.Describe("OTPEngine", func() {
	var (
		engine OTPEngine
		repo   *mockRepository
		user   *userDatamodel.User
	)

	ginkgo.BeforeEach(func() {
		engine = NewOTPEngine(3 * time.Minute)
		user = &userDatamodel.User{
			UserID:    "EM2023T001",
			Username:  "EM2023T001",
			Email:     "teacher@college.edu",
			IsActive:  true,
			MaxOTPTry: userDatamodel.DefaultMaxOTPTry,
		}
		repo = newMockRepository(user)
	})

	ginkgo.Describe("Generate", func() {
		ginkgo.It("issues a 6-digit code with a fresh expiry and zeroed attempts", func() {
			// Given
			user.OTPAttempts = 2

			// When
			code, err := engine.Generate(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(code).To(gomega.MatchRegexp(`^\d{6}$`))
			gomega.Expect(user.OTPCode).NotTo(gomega.BeNil())
			gomega.Expect(*user.OTPCode).To(gomega.Equal(code))
			gomega.Expect(user.OTPAttempts).To(gomega.Equal(0))
			gomega.Expect(user.OTPExpiry).NotTo(gomega.BeNil())
			gomega.Expect(time.Until(*user.OTPExpiry)).To(gomega.BeNumerically("~", 3*time.Minute, 5*time.Second))
		})

		ginkgo.It("overwrites a previously issued code", func() {
			// Given
			first, err := engine.Generate(repo, user)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			// When
			second, err := engine.Generate(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(*user.OTPCode).To(gomega.Equal(second))
			if first != second {
				gomega.Expect(engine.Verify(repo, user, first, true)).To(gomega.MatchError(internal.ErrOTPInvalid))
			}
		})
	})

	ginkgo.Describe("Verify", func() {
		ginkgo.It("rejects when no code was issued", func() {
			// When
			err := engine.Verify(repo, user, "123456", true)

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrOTPMissing))
		})

		ginkgo.It("rejects and clears an expired code", func() {
			// Given
			code := "654321"
			expiry := time.Now().Add(-time.Second)
			user.OTPCode = &code
			user.OTPExpiry = &expiry

			// When
			err := engine.Verify(repo, user, code, true)

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrOTPExpired))
			gomega.Expect(user.OTPCode).To(gomega.BeNil())
			gomega.Expect(user.OTPExpiry).To(gomega.BeNil())
		})

		ginkgo.It("counts wrong guesses and exhausts after the per-user cap", func() {
			// Given
			code, err := engine.Generate(repo, user)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			wrong := "000000"
			if wrong == code {
				wrong = "000001"
			}

			// When three wrong guesses land
			for i := 0; i < userDatamodel.DefaultMaxOTPTry; i++ {
				gomega.Expect(engine.Verify(repo, user, wrong, true)).To(gomega.MatchError(internal.ErrOTPInvalid))
			}

			// Then even the right code is refused
			gomega.Expect(user.OTPAttempts).To(gomega.Equal(3))
			gomega.Expect(engine.Verify(repo, user, code, true)).To(gomega.MatchError(internal.ErrOTPExhausted))
		})

		ginkgo.It("consumes the code on success when clearOnSuccess is set", func() {
			// Given
			code, err := engine.Generate(repo, user)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			// When
			err = engine.Verify(repo, user, code, true)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(user.OTPVerified).To(gomega.BeTrue())
			gomega.Expect(user.OTPCode).To(gomega.BeNil())
			gomega.Expect(user.OTPExpiry).To(gomega.BeNil())
		})

		ginkgo.It("keeps the code live on success when clearOnSuccess is not set", func() {
			// Given
			code, err := engine.Generate(repo, user)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			// When
			err = engine.Verify(repo, user, code, false)

			// Then the same code verifies again
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(user.OTPCode).NotTo(gomega.BeNil())
			gomega.Expect(engine.Verify(repo, user, code, true)).To(gomega.Succeed())
			gomega.Expect(user.OTPCode).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("Invalidate", func() {
		ginkgo.It("discards the stored code", func() {
			// Given
			_, err := engine.Generate(repo, user)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			// When
			err = engine.Invalidate(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(user.OTPCode).To(gomega.BeNil())
			gomega.Expect(engine.Verify(repo, user, "123456", true)).To(gomega.MatchError(internal.ErrOTPMissing))
		})
	})
})
