package controllers

import (
	"edutest/backend/config"
	"edutest/backend/services"
	"edutest/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type CertificatesController struct {
	Cfg          *config.Config
	Certificates *services.CertificateService
}

func NewCertificatesController(certs *services.CertificateService, cfg *config.Config) *CertificatesController {
	return &CertificatesController{Cfg: cfg, Certificates: certs}
}

// [+] ListCertificates godoc
// @Summary List the caller's certificates
// @Tags certificates
// @Router /certificates [get]
func (cc *CertificatesController) ListCertificates(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	certs, err := cc.Certificates.ListUserCertificates(userID)
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"certificates": certs,
	})
}

// [+] VerifyCertificate godoc
// @Summary Verify a certificate by its code
// @Description Public endpoint; anyone holding a code can check it
// @Tags certificates
// @Router /certificates/verify/{code} [get]
func (cc *CertificatesController) VerifyCertificate(c *fiber.Ctx) error {
	cert, err := cc.Certificates.VerifyCode(c.Params("code"))
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"valid": true,
		"certificate": fiber.Map{
			"code":      cert.Code,
			"user_id":   cert.UserID,
			"course_id": cert.CourseID,
			"score":     cert.Score,
			"issued_at": cert.IssuedAt,
		},
	})
}
