package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// GetMyBalance returns the calling instructor's unsettled balance.
func GetMyBalance(c *fiber.Ctx) error {
	instructor, err := instructorFromToken(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Instructor profile not found"})
	}

	balance, err := earningsService.GetPendingBalance(instructor.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(balance)
}

// GetMyMonthlyEarnings returns a per-month earnings rollup. The optional
// months query parameter bounds the window (default 12).
func GetMyMonthlyEarnings(c *fiber.Ctx) error {
	instructor, err := instructorFromToken(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Instructor profile not found"})
	}

	months := c.QueryInt("months", 12)
	if months < 1 || months > 60 {
		months = 12
	}
	since := time.Now().AddDate(0, -months, 0)

	breakdown, err := earningsService.GetMonthlyBreakdown(instructor.ID, since)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(fiber.Map{"months": breakdown})
}

// GetMyCourseEarnings returns a per-course earnings rollup.
func GetMyCourseEarnings(c *fiber.Ctx) error {
	instructor, err := instructorFromToken(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Instructor profile not found"})
	}

	breakdown, err := earningsService.GetCourseBreakdown(instructor.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(fiber.Map{"courses": breakdown})
}
