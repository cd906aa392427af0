package routes

import (
	"log"

	"edutest/backend/config"
	"edutest/backend/controllers"
	"edutest/backend/middleware"
	"edutest/backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	// Engine services, wired once and shared
	certService := services.NewCertificateService(db, nil, logger)
	attemptService := services.NewAttemptService(db, certService, logger)
	testService := services.NewTestService(db)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	instructorMiddleware := middleware.InstructorMiddleware(db, cfg)

	// Courses (ownership anchor only)
	coursesController := controllers.NewCoursesController(db, cfg)
	app.Get("/api/courses/:id", authMiddleware, coursesController.GetCourse)

	// Test taking
	testsController := controllers.NewTestsController(testService, cfg)
	attemptsController := controllers.NewAttemptsController(attemptService, cfg)
	tests := app.Group("/api/tests", authMiddleware)
	tests.Get("/:id", testsController.GetTestDetails)
	tests.Get("/:id/eligibility", attemptsController.GetEligibility)
	tests.Post("/:id/attempts", attemptsController.StartAttempt)

	attempts := app.Group("/api/attempts", authMiddleware)
	attempts.Get("/", attemptsController.ListAttempts)
	attempts.Get("/:id", attemptsController.GetAttempt)
	attempts.Put("/:id/answers", attemptsController.RecordAnswer)
	attempts.Post("/:id/submit", attemptsController.SubmitAttempt)
	attempts.Post("/:id/abandon", attemptsController.AbandonAttempt)

	// Certificates
	certificatesController := controllers.NewCertificatesController(certService, cfg)
	app.Get("/api/certificates", authMiddleware, certificatesController.ListCertificates)
	app.Get("/api/certificates/verify/:code", certificatesController.VerifyCertificate)

	// Instructor routes for courses and test authoring
	instructor := app.Group("/api/instructor", authMiddleware, instructorMiddleware)
	instructor.Post("/courses", coursesController.CreateCourse)
	instructor.Post("/courses/:id/test", testsController.CreateTest)
	instructor.Put("/tests/:id", testsController.UpdateTest)
	instructor.Delete("/tests/:id", testsController.DeleteTest)
	instructor.Post("/tests/:id/questions", testsController.AddQuestion)
	instructor.Put("/questions/:id/options", testsController.SetOptions)
	instructor.Delete("/questions/:id", testsController.DeleteQuestion)
	instructor.Post("/tests/:id/publish", testsController.Publish)
	instructor.Post("/tests/:id/unpublish", testsController.Unpublish)
	instructor.Get("/tests/:id/analytics", testsController.GetTestAnalytics)
}
