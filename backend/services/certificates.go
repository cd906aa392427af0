package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"edutest/backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Renderer produces the certificate artifact (an image, a PDF). It is an
// external collaborator invoked best-effort after the record exists; a
// render failure never blocks or undoes issuance.
type Renderer interface {
	Render(cert *models.Certificate) error
}

// CertificateService issues at most one certificate per (user, course).
type CertificateService struct {
	DB       *gorm.DB
	Renderer Renderer
	Logger   *log.Logger
	Now      func() time.Time
}

func NewCertificateService(db *gorm.DB, renderer Renderer, logger *log.Logger) *CertificateService {
	return &CertificateService{DB: db, Renderer: renderer, Logger: logger, Now: time.Now}
}

// IssueIfPassed creates the certificate for a passing attempt, or returns
// the existing one unchanged. Idempotent under concurrency: the insert is
// ON CONFLICT DO NOTHING against the (user, course) unique index and the
// surviving row is read back, so repeat triggers (even racing ones
// referencing different passing attempts) all yield the same record.
func (cs *CertificateService) IssueIfPassed(userID, courseID, testID, attemptID uint, scorePercentage float64) (*models.Certificate, error) {
	cert := models.Certificate{
		UserID:    userID,
		CourseID:  courseID,
		TestID:    testID,
		AttemptID: attemptID,
		Code:      newCertificateCode(courseID, userID, cs.Now()),
		Score:     scorePercentage,
		IssuedAt:  cs.Now(),
	}

	res := cs.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&cert)
	if res.Error != nil {
		return nil, res.Error
	}

	var winner models.Certificate
	if err := cs.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&winner).Error; err != nil {
		return nil, err
	}

	if res.RowsAffected > 0 && winner.ID == cert.ID && cs.Renderer != nil {
		if err := cs.Renderer.Render(&winner); err != nil {
			cs.Logger.Printf("certificate %s: artifact rendering failed: %v", winner.Code, err)
		}
	}
	return &winner, nil
}

// VerifyCode resolves a human-supplied certificate code.
func (cs *CertificateService) VerifyCode(code string) (*models.Certificate, error) {
	var cert models.Certificate
	if err := cs.DB.Where("code = ?", code).First(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrNotFound, "certificate code %q", code)
		}
		return nil, err
	}
	return &cert, nil
}

// ListUserCertificates returns everything the user has earned.
func (cs *CertificateService) ListUserCertificates(userID uint) ([]models.Certificate, error) {
	var certs []models.Certificate
	if err := cs.DB.Where("user_id = ?", userID).
		Order("issued_at DESC").Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

// newCertificateCode builds a verifiable code carrying the course, user
// and issue date plus a random suffix for uniqueness.
func newCertificateCode(courseID, userID uint, issued time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CERT-%d-%d-%s-%s", courseID, userID, issued.Format("20060102"), suffix)
}
