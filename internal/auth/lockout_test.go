package auth

import (
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

var _ = ginkgo.Describe("LockoutEngine", func() {
	var (
		engine LockoutEngine
		repo   *mockRepository
		user   *userDatamodel.User
	)

	ginkgo.BeforeEach(func() {
		engine = LockoutEngine{}
		user = &userDatamodel.User{
			UserID:       "EM2023T001",
			Username:     "EM2023T001",
			Email:        "teacher@college.edu",
			PasswordHash: "hash",
			IsActive:     true,
		}
		repo = newMockRepository(user)
	})

	ginkgo.Describe("Evaluate", func() {
		ginkgo.It("reports unlocked when there are no failed attempts", func() {
			// When
			locked, message, err := engine.Evaluate(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(locked).To(gomega.BeFalse())
			gomega.Expect(message).To(gomega.Equal("Account is not locked."))
		})

		ginkgo.It("locks for the timed window after three failures", func() {
			// Given
			lastFailed := time.Now().Add(-5 * time.Minute)
			user.FailedLoginAttempts = 3
			user.LastFailedLogin = &lastFailed

			// When
			locked, message, err := engine.Evaluate(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(locked).To(gomega.BeTrue())
			gomega.Expect(message).To(gomega.ContainSubstring("locked for"))
			gomega.Expect(message).To(gomega.ContainSubstring("minutes"))
		})

		ginkgo.It("unlocks and clears the counters once the timed window elapsed", func() {
			// Given
			lastFailed := time.Now().Add(-2 * time.Hour)
			user.FailedLoginAttempts = 3
			user.LastFailedLogin = &lastFailed

			// When
			locked, _, err := engine.Evaluate(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(locked).To(gomega.BeFalse())
			gomega.Expect(user.FailedLoginAttempts).To(gomega.Equal(0))
			gomega.Expect(user.LastFailedLogin).To(gomega.BeNil())
			gomega.Expect(user.LockedUntil).To(gomega.BeNil())
		})

		ginkgo.It("locks for the extended window after five failures", func() {
			// Given
			lastFailed := time.Now().Add(-30 * time.Minute)
			user.FailedLoginAttempts = 5
			user.LastFailedLogin = &lastFailed

			// When
			locked, message, err := engine.Evaluate(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(locked).To(gomega.BeTrue())
			gomega.Expect(message).To(gomega.MatchRegexp(`locked for \d+h \d+m`))
		})

		ginkgo.It("flips to a permanent lock at eight failures and persists the reason", func() {
			// Given
			lastFailed := time.Now()
			user.FailedLoginAttempts = 8
			user.LastFailedLogin = &lastFailed

			// When
			locked, message, err := engine.Evaluate(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(locked).To(gomega.BeTrue())
			gomega.Expect(message).To(gomega.ContainSubstring("permanently locked"))
			gomega.Expect(user.PermanentLock).To(gomega.BeTrue())
			gomega.Expect(user.LockReason).NotTo(gomega.BeNil())
			gomega.Expect(*user.LockReason).To(gomega.Equal("Too many failed login attempts (8+). Administrative unlock required."))
		})

		ginkgo.It("always reports locked for a permanently locked account", func() {
			// Given
			user.PermanentLock = true

			// When
			locked, message, err := engine.Evaluate(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(locked).To(gomega.BeTrue())
			gomega.Expect(message).To(gomega.ContainSubstring("contact administrator"))
		})
	})

	ginkgo.Describe("IncrementFailedAttempts", func() {
		ginkgo.It("sets the timed lock window when the third failure lands", func() {
			// Given
			user.FailedLoginAttempts = 2

			// When
			err := engine.IncrementFailedAttempts(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(user.FailedLoginAttempts).To(gomega.Equal(3))
			gomega.Expect(user.LockedUntil).NotTo(gomega.BeNil())
			gomega.Expect(time.Until(*user.LockedUntil)).To(gomega.BeNumerically("~", time.Hour, time.Minute))
		})

		ginkgo.It("sets the extended lock window when the fifth failure lands", func() {
			// Given
			user.FailedLoginAttempts = 4

			// When
			err := engine.IncrementFailedAttempts(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(user.LockedUntil).NotTo(gomega.BeNil())
			gomega.Expect(time.Until(*user.LockedUntil)).To(gomega.BeNumerically("~", 6*time.Hour, time.Minute))
		})

		ginkgo.It("marks the account permanently locked on the eighth failure", func() {
			// Given
			user.FailedLoginAttempts = 7

			// When
			err := engine.IncrementFailedAttempts(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(user.PermanentLock).To(gomega.BeTrue())
			gomega.Expect(user.LockReason).NotTo(gomega.BeNil())
		})

		ginkgo.It("does not start a window below the first tier", func() {
			// When
			err := engine.IncrementFailedAttempts(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(user.FailedLoginAttempts).To(gomega.Equal(1))
			gomega.Expect(user.LockedUntil).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("ResetFailedAttempts", func() {
		ginkgo.It("clears counters and the lock window", func() {
			// Given
			now := time.Now()
			user.FailedLoginAttempts = 4
			user.LastFailedLogin = &now
			user.LockedUntil = &now

			// When
			reset, err := engine.ResetFailedAttempts(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(reset).To(gomega.BeTrue())
			gomega.Expect(user.FailedLoginAttempts).To(gomega.Equal(0))
			gomega.Expect(user.LastFailedLogin).To(gomega.BeNil())
			gomega.Expect(user.LockedUntil).To(gomega.BeNil())
		})

		ginkgo.It("refuses to reset a permanently locked account", func() {
			// Given
			user.PermanentLock = true
			user.FailedLoginAttempts = 9

			// When
			reset, err := engine.ResetFailedAttempts(repo, user)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(reset).To(gomega.BeFalse())
			gomega.Expect(user.FailedLoginAttempts).To(gomega.Equal(9))
		})
	})

	ginkgo.Describe("AttemptsRemaining", func() {
		ginkgo.It("counts down to the next tier boundary", func() {
			gomega.Expect(AttemptsRemaining(0)).To(gomega.Equal(3))
			gomega.Expect(AttemptsRemaining(2)).To(gomega.Equal(1))
			gomega.Expect(AttemptsRemaining(3)).To(gomega.Equal(2))
			gomega.Expect(AttemptsRemaining(4)).To(gomega.Equal(1))
			gomega.Expect(AttemptsRemaining(5)).To(gomega.Equal(3))
			gomega.Expect(AttemptsRemaining(7)).To(gomega.Equal(1))
			gomega.Expect(AttemptsRemaining(8)).To(gomega.Equal(0))
		})
	})
})
