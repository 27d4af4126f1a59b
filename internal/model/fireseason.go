package model

import (
	"fmt"
	"time"
)

// Fire season phases.
const (
	SeasonPre    = "PRE_SEASON"
	SeasonActive = "ACTIVE"
	SeasonPost   = "POST_SEASON"
)

// FireSeason is the countdown block attached to most API responses.
// The season runs June 1 through November 30 inclusive.
type FireSeason struct {
	Status              string `json:"status"`
	DaysUntilFireSeason *int   `json:"days_until_fire_season,omitempty"`
	FireSeasonStart     string `json:"fire_season_start,omitempty"`
	DaysRemaining       *int   `json:"days_remaining,omitempty"`
	FireSeasonEnd       string `json:"fire_season_end,omitempty"`
	Message             string `json:"message"`
}

// FireSeasonStatus computes the season phase for the calendar day of now.
func FireSeasonStatus(now time.Time) FireSeason {
	today := civilDay(now)
	start := time.Date(today.Year(), time.June, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(today.Year(), time.November, 30, 0, 0, 0, 0, time.UTC)

	switch {
	case today.Before(start):
		days := daysBetween(today, start)
		return FireSeason{
			Status:              SeasonPre,
			DaysUntilFireSeason: &days,
			FireSeasonStart:     start.Format(time.DateOnly),
			Message:             fmt.Sprintf("%d DAYS until Fire Season", days),
		}
	case !today.After(end):
		days := daysBetween(today, end)
		return FireSeason{
			Status:        SeasonActive,
			DaysRemaining: &days,
			FireSeasonEnd: end.Format(time.DateOnly),
			Message:       fmt.Sprintf("FIRE SEASON ACTIVE - %d days remaining", days),
		}
	default:
		next := start.AddDate(1, 0, 0)
		days := daysBetween(today, next)
		return FireSeason{
			Status:              SeasonPost,
			DaysUntilFireSeason: &days,
			FireSeasonStart:     next.Format(time.DateOnly),
			Message:             fmt.Sprintf("%d DAYS until next Fire Season", days),
		}
	}
}

// Countdown is the orchestrator's view of the next season start.
type Countdown struct {
	DaysRemaining   int    `json:"days_remaining"`
	FireSeasonStart string `json:"fire_season_start"`
	Urgency         string `json:"urgency"`
	Status          string `json:"status,omitempty"`
}

// FireSeasonCountdown returns the days until the next June 1. From June
// onward the next start is in the following year.
func FireSeasonCountdown(now time.Time) Countdown {
	today := civilDay(now)
	year := today.Year()
	if today.Month() >= time.June {
		year++
	}
	start := time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
	days := daysBetween(today, start)

	c := Countdown{DaysRemaining: days, FireSeasonStart: start.Format(time.DateOnly)}
	switch {
	case days > 90:
		c.Urgency, c.Status = "low", "Good preparation window"
	case days > 30:
		c.Urgency, c.Status = "medium", "Accelerate critical work"
	default:
		c.Urgency, c.Status = "high", "URGENT - Fire season imminent"
	}
	return c
}

// FireRiskUrgency grades a countdown on the fire risk scale.
func FireRiskUrgency(days int) string {
	switch {
	case days < 30:
		return "critical"
	case days < 60:
		return "high"
	case days < 90:
		return "medium"
	default:
		return "low"
	}
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
