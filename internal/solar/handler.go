package solar

import (
	"context"
	"strconv"

	"gunes-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Estimator testlerde sahte tahminci verilebilmesi için.
type Estimator interface {
	Estimate(ctx context.Context, in Input) (*Estimate, error)
}

func queryFloat(c *fiber.Ctx, key string, def float64, required bool) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		if required {
			return 0, fiber.NewError(fiber.StatusBadRequest, key+" zorunlu")
		}
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" geçersiz")
	}
	return v, nil
}

// GET /api/solar/estimate?lat=38.42&lon=27.14&capacity_kw=10&tilt=30&azimuth=180
func EstimateHandler(est Estimator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in Input
		var err error
		if in.Lat, err = queryFloat(c, "lat", 0, true); err != nil {
			return err
		}
		if in.Lon, err = queryFloat(c, "lon", 0, true); err != nil {
			return err
		}
		if in.CapacityKW, err = queryFloat(c, "capacity_kw", 0, true); err != nil {
			return err
		}
		if in.Tilt, err = queryFloat(c, "tilt", 30, false); err != nil {
			return err
		}
		if in.Azimuth, err = queryFloat(c, "azimuth", 180, false); err != nil {
			return err
		}

		res, err := est.Estimate(c.UserContext(), in)
		if err != nil {
			if apperr.StatusOf(err) == fiber.StatusBadRequest {
				return apperr.ToFiber(err)
			}
			log.Error().Err(err).Msg("PVWatts tahmini alınamadı")
			return fiber.NewError(fiber.StatusBadGateway, "Üretim tahmini şu an alınamıyor")
		}
		return c.JSON(res)
	}
}
