package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/logging"
	corelogger "github.com/axops/axops-core/pkg/logger"
)

// MaintenanceWindowService answers the alert lifecycle's maintenance-gate
// queries from the configured recurring calendar. Windows are evaluated in
// UTC.
type MaintenanceWindowService struct {
	windows []maintenanceWindow
	logger  logging.Logger
}

type maintenanceWindow struct {
	name  string
	start int // minutes since midnight
	end   int
	days  map[time.Weekday]bool // nil means every day
}

func NewMaintenanceWindowService(cfgs []config.MaintenanceWindowConfig, logger corelogger.Logger) (*MaintenanceWindowService, error) {
	svc := &MaintenanceWindowService{logger: logging.FromCoreLogger(logger)}

	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		start, err := parseWallClock(cfg.Start)
		if err != nil {
			return nil, fmt.Errorf("maintenance window %q: %w", cfg.Name, err)
		}
		end, err := parseWallClock(cfg.End)
		if err != nil {
			return nil, fmt.Errorf("maintenance window %q: %w", cfg.Name, err)
		}

		w := maintenanceWindow{name: cfg.Name, start: start, end: end}
		if len(cfg.Days) > 0 {
			w.days = make(map[time.Weekday]bool, len(cfg.Days))
			for _, day := range cfg.Days {
				wd, err := parseWeekday(day)
				if err != nil {
					return nil, fmt.Errorf("maintenance window %q: %w", cfg.Name, err)
				}
				w.days[wd] = true
			}
		}
		svc.windows = append(svc.windows, w)
	}
	return svc, nil
}

func (s *MaintenanceWindowService) IsSuppressed(ctx context.Context, now time.Time) (bool, error) {
	names, err := s.ActiveWindowNames(ctx, now)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

func (s *MaintenanceWindowService) ActiveWindowNames(_ context.Context, now time.Time) ([]string, error) {
	now = now.UTC()
	minutes := now.Hour()*60 + now.Minute()

	var active []string
	for _, w := range s.windows {
		if w.contains(now.Weekday(), minutes) {
			active = append(active, w.name)
		}
	}
	return active, nil
}

func (w maintenanceWindow) contains(day time.Weekday, minutes int) bool {
	if w.start <= w.end {
		// Same-day window.
		if w.days != nil && !w.days[day] {
			return false
		}
		return minutes >= w.start && minutes < w.end
	}

	// Overnight wrap: the tail before midnight belongs to the listed day,
	// the head after midnight to the following day.
	if minutes >= w.start {
		return w.days == nil || w.days[day]
	}
	if minutes < w.end {
		previous := (day + 6) % 7
		return w.days == nil || w.days[previous]
	}
	return false
}

func parseWallClock(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid wall-clock time %q (want HH:MM)", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func parseWeekday(v string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon":
		return time.Monday, nil
	case "tuesday", "tue":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", v)
}

// StaticActorResolver resolves every audit field to one configured service
// identity. Per-request identity is out of scope for this service.
type StaticActorResolver struct {
	Actor string
}

func (r *StaticActorResolver) Resolve(context.Context) string {
	return r.Actor
}
