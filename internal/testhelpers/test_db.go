package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hireloop/interviewroom/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	openSQLite = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Silent),
		})
	}
	migrateSchema = func(db *gorm.DB) error { return db.AutoMigrate(models.AllModels()...) }
)

// SetupTestDB creates an isolated in-memory SQLite database for tests.
// The pool is pinned to one connection so transactions serialize.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to get sql db: %v", err))
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrateSchema(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedApplication inserts a catalog application row.
func SeedApplication(t *testing.T, db *gorm.DB, id uint, candidate, employer, title string) *models.Application {
	t.Helper()
	app := &models.Application{ID: id, CandidateUserID: candidate, EmployerUserID: employer, JobTitle: title}
	if err := db.Create(app).Error; err != nil {
		panic(fmt.Sprintf("failed to seed application: %v", err))
	}
	return app
}

// SeedInterviewer inserts an interviewer profile with an hourly rate in cents.
func SeedInterviewer(t *testing.T, db *gorm.DB, userID string, rateCents int64) *models.InterviewerProfile {
	t.Helper()
	p := &models.InterviewerProfile{UserID: userID, HourlyRateCents: rateCents, Currency: "USD"}
	if err := db.Create(p).Error; err != nil {
		panic(fmt.Sprintf("failed to seed interviewer: %v", err))
	}
	return p
}
