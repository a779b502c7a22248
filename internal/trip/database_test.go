package trip

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/autocompanion/autocompanion/internal/apperr"
)

var _ = Describe("BoltDB", func() {
	var (
		ctx    context.Context
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("CreateTrip", func() {
		var (
			trip *Trip
			err  error
		)

		BeforeEach(func() {
			trip = &Trip{
				UserID:    "uid-1",
				FromPlace: "Bangalore",
				ToPlace:   "Mysore",
				Days:      2,
				Style:     "Relaxed",
				AIRawText: "- Day 1 - Drive",
				CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			}
		})

		JustBeforeEach(func() {
			err = db.CreateTrip(ctx, trip)
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should assign the first id", func() {
			Expect(trip.ID).To(Equal(uint64(1)))
		})

		It("should read back the same record", func() {
			saved, getErr := db.GetTrip(ctx, trip.ID)
			Expect(getErr).NotTo(HaveOccurred())
			Expect(saved).To(Equal(trip))
		})

		It("should assign increasing ids", func() {
			for want := uint64(2); want <= 4; want++ {
				next := &Trip{UserID: "uid-1"}
				Expect(db.CreateTrip(ctx, next)).To(Succeed())
				Expect(next.ID).To(Equal(want))
			}
		})

		When("the database is reopened", func() {
			It("should continue the sequence", func() {
				Expect(db.Close()).To(Succeed())
				var openErr error
				db, openErr = NewBoltDB(dbPath)
				Expect(openErr).NotTo(HaveOccurred())

				next := &Trip{UserID: "uid-2"}
				Expect(db.CreateTrip(ctx, next)).To(Succeed())
				Expect(next.ID).To(Equal(uint64(2)))
			})
		})
	})

	Describe("GetTrip", func() {
		When("the trip does not exist", func() {
			It("should return a not found error", func() {
				_, err := db.GetTrip(ctx, 99)
				Expect(errors.Is(err, apperr.ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("NewBoltDB", func() {
		When("the path is not writable", func() {
			It("should return an error", func() {
				_, err := NewBoltDB(filepath.Join(GinkgoT().TempDir(), "missing", "dir", "test.db"))
				Expect(err).To(HaveOccurred())
			})
		})
	})
})

var _ = Describe("GormDB", func() {
	var (
		ctx context.Context
		db  *GormDB
	)

	BeforeEach(func() {
		dsn := os.Getenv("AUTOCOMPANION_TEST_DSN")
		if dsn == "" {
			Skip("AUTOCOMPANION_TEST_DSN not set; skipping Postgres-backed store tests")
		}
		ctx = context.Background()
		var err error
		db, err = NewGormDB(dsn)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	It("should round-trip a trip", func() {
		trip := &Trip{
			UserID:    "uid-gorm",
			FromPlace: "Chennai",
			ToPlace:   "Pondicherry",
			Days:      1,
			Style:     "Beach",
			AIRawText: "- Day 1 - Promenade",
			CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		}
		Expect(db.CreateTrip(ctx, trip)).To(Succeed())
		Expect(trip.ID).NotTo(BeZero())

		saved, err := db.GetTrip(ctx, trip.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.ToPlace).To(Equal("Pondicherry"))
		Expect(saved.AIRawText).To(Equal(trip.AIRawText))
	})

	It("should report a missing trip", func() {
		_, err := db.GetTrip(ctx, ^uint64(0)>>1)
		Expect(errors.Is(err, apperr.ErrNotFound)).To(BeTrue())
	})

	It("should require a dsn", func() {
		_, err := NewGormDB("")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("abandonGorm", func() {
	It("should keep the close error alongside the cause", func() {
		cause := errors.New("migrating trips table: boom")
		err := abandonGorm(&gorm.DB{Config: &gorm.Config{}}, cause)
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(errors.Is(err, gorm.ErrInvalidDB)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("closing postgres"))
	})
})
