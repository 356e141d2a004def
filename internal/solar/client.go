// Package solar NREL PVWatts v8 ile yıllık/aylık üretim tahmini yapar.
package solar

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/cache"

	"github.com/juju/errors"
	"github.com/rs/zerolog/log"
)

const (
	CacheTTL      = 24 * time.Hour
	defaultLosses = 14.0
)

type Input struct {
	Lat        float64
	Lon        float64
	CapacityKW float64
	Tilt       float64
	Azimuth    float64
}

// Normalize koordinatları 2, açıları tam sayıya yuvarlar; önbellek anahtarı bu değerlerden üretilir.
func (in Input) Normalize() Input {
	return Input{
		Lat:        math.Round(in.Lat*100) / 100,
		Lon:        math.Round(in.Lon*100) / 100,
		CapacityKW: math.Round(in.CapacityKW*10) / 10,
		Tilt:       math.Round(in.Tilt),
		Azimuth:    math.Round(in.Azimuth),
	}
}

func (in Input) Validate() error {
	switch {
	case in.Lat < -90 || in.Lat > 90:
		return apperr.Invalid("lat -90 ile 90 arasında olmalı")
	case in.Lon < -180 || in.Lon > 180:
		return apperr.Invalid("lon -180 ile 180 arasında olmalı")
	case in.CapacityKW < 0.05 || in.CapacityKW > 500000:
		return apperr.Invalid("capacity_kw 0.05 ile 500000 arasında olmalı")
	case in.Tilt < 0 || in.Tilt > 90:
		return apperr.Invalid("tilt 0 ile 90 arasında olmalı")
	case in.Azimuth < 0 || in.Azimuth >= 360:
		return apperr.Invalid("azimuth 0 ile 360 arasında olmalı")
	}
	return nil
}

func (in Input) cacheKey() string {
	return fmt.Sprintf("pvwatts:v8:%.2f:%.2f:%.1f:%.0f:%.0f", in.Lat, in.Lon, in.CapacityKW, in.Tilt, in.Azimuth)
}

type Estimate struct {
	AnnualKWh      float64     `json:"annual_kwh"`
	MonthlyKWh     [12]float64 `json:"monthly_kwh"`
	SolarRadiation float64     `json:"solar_radiation"` // kWh/m²/gün
	CapacityFactor float64     `json:"capacity_factor"` // %
	SpecificYield  float64     `json:"specific_yield"`  // kWh/kWp
	Cached         bool        `json:"cached"`
}

type pvwattsResponse struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Outputs  struct {
		ACMonthly      []float64 `json:"ac_monthly"`
		ACAnnual       float64   `json:"ac_annual"`
		SolradAnnual   float64   `json:"solrad_annual"`
		CapacityFactor float64   `json:"capacity_factor"`
	} `json:"outputs"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   cache.Cache
}

func NewClient(baseURL, apiKey string, c cache.Cache) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 20 * time.Second},
		cache:   c,
	}
}

// Estimate önce önbelleğe bakar; önbellek hatası isteği engellemez.
func (cl *Client) Estimate(ctx context.Context, in Input) (*Estimate, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	key := in.cacheKey()

	if b, ok, err := cl.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("PVWatts önbelleği okunamadı")
	} else if ok {
		var est Estimate
		if err := json.Unmarshal(b, &est); err == nil {
			est.Cached = true
			return &est, nil
		}
	}

	est, err := cl.fetch(ctx, in)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(est); err == nil {
		if err := cl.cache.Set(ctx, key, b, CacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("PVWatts önbelleğe yazılamadı")
		}
	}
	return est, nil
}

func (cl *Client) fetch(ctx context.Context, in Input) (*Estimate, error) {
	if cl.apiKey == "" {
		return nil, errors.New("NREL_API_KEY tanımlı değil")
	}
	q := url.Values{}
	q.Set("api_key", cl.apiKey)
	q.Set("system_capacity", strconv.FormatFloat(in.CapacityKW, 'f', -1, 64))
	q.Set("module_type", "0")
	q.Set("losses", strconv.FormatFloat(defaultLosses, 'f', -1, 64))
	q.Set("array_type", "1")
	q.Set("tilt", strconv.FormatFloat(in.Tilt, 'f', -1, 64))
	q.Set("azimuth", strconv.FormatFloat(in.Azimuth, 'f', -1, 64))
	q.Set("lat", strconv.FormatFloat(in.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(in.Lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cl.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	resp, err := cl.http.Do(req)
	if err != nil {
		return nil, errors.Annotate(err, "PVWatts isteği başarısız")
	}
	defer resp.Body.Close()

	var body pvwattsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Annotatef(err, "PVWatts yanıtı çözülemedi (HTTP %d)", resp.StatusCode)
	}
	if len(body.Errors) > 0 {
		return nil, apperr.Invalid("PVWatts: %s", strings.Join(body.Errors, "; "))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("PVWatts yanıtı: %d", resp.StatusCode)
	}
	if len(body.Outputs.ACMonthly) != 12 {
		return nil, errors.Errorf("PVWatts aylık üretim %d ay döndü", len(body.Outputs.ACMonthly))
	}

	est := &Estimate{
		AnnualKWh:      round(body.Outputs.ACAnnual, 1),
		SolarRadiation: round(body.Outputs.SolradAnnual, 2),
		CapacityFactor: round(body.Outputs.CapacityFactor, 2),
		SpecificYield:  round(body.Outputs.ACAnnual/in.CapacityKW, 1),
	}
	for i, v := range body.Outputs.ACMonthly {
		est.MonthlyKWh[i] = round(v, 1)
	}
	return est, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
