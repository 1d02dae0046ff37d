package httpapi

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/penang-weather/forecast-aggregation/internal/forecast"
)

var validate = validator.New()

// sourceParam identifies the upstream source addressed by a request.
type sourceParam struct {
	Source string `validate:"required,oneof=metmalaysia openweathermap windy"`
}

func parseSource(c *fiber.Ctx) (forecast.SourceTag, error) {
	p := sourceParam{Source: c.Params("source")}
	if err := validate.Struct(p); err != nil {
		return "", fmt.Errorf("unknown source %q", p.Source)
	}
	return forecast.SourceTag(p.Source), nil
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *forecast.Service) {
	api := app.Group("/api")

	api.Get("/:source/daily", func(c *fiber.Ctx) error {
		tag, err := parseSource(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := service.Daily(c.UserContext(), tag)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch daily data")
		}
		return c.JSON(fiber.Map{"data": records})
	})

	api.Get("/:source/weekly", func(c *fiber.Ctx) error {
		tag, err := parseSource(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := service.Weekly(c.UserContext(), tag)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weekly data")
		}
		return c.JSON(fiber.Map{"data": records})
	})

	api.Get("/:source/mapData", func(c *fiber.Ctx) error {
		tag, err := parseSource(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !service.SupportsMap(tag) {
			return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("source %q has no map data", tag))
		}

		snapshots, err := service.MapSnapshot(c.UserContext(), tag)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to build map snapshot")
		}
		return c.JSON(snapshots)
	})

	runInsert := func(c *fiber.Ctx, tag forecast.SourceTag) error {
		if err := service.Ingest(c.UserContext(), tag); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": fmt.Sprintf("%s data inserted", tag),
		})
	}

	api.Post("/:source/insert", func(c *fiber.Ctx) error {
		tag, err := parseSource(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return runInsert(c, tag)
	})

	// The MET pipeline has historically been triggered by a plain GET.
	api.Get("/metmalaysia/insert", func(c *fiber.Ctx) error {
		return runInsert(c, forecast.SourceMETMalaysia)
	})
}
