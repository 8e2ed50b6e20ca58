package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Dan9191/edge-dashboard/internal/models"
)

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Preferences returns the UI preferences with their defaults filled in. The
// stored token is never included.
func (s *Service) Preferences(ctx context.Context) (map[string]string, error) {
	stored, err := s.prefs.All(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]string{
		models.PrefTheme:            ThemeDark,
		models.PrefSidebarCollapsed: "false",
	}
	for k, v := range stored {
		if k == models.PrefToken {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// SetPreference validates and stores a UI preference.
func (s *Service) SetPreference(ctx context.Context, key, value string) error {
	switch key {
	case models.PrefTheme:
		if value != ThemeDark && value != ThemeLight {
			return fmt.Errorf("invalid theme %q", value)
		}
	case models.PrefSidebarCollapsed:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("invalid sidebar flag %q", value)
		}
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	return s.prefs.Set(ctx, key, value)
}

// ToggleTheme flips between dark and light and returns the new theme.
func (s *Service) ToggleTheme(ctx context.Context) (string, error) {
	current, _, err := s.prefs.Get(ctx, models.PrefTheme)
	if err != nil {
		return "", err
	}
	next := ThemeDark
	if current == "" || current == ThemeDark {
		next = ThemeLight
	}
	if err := s.prefs.Set(ctx, models.PrefTheme, next); err != nil {
		return "", err
	}
	return next, nil
}

// ToggleSidebar flips the collapsed flag and returns the new state.
func (s *Service) ToggleSidebar(ctx context.Context) (bool, error) {
	current, _, err := s.prefs.Get(ctx, models.PrefSidebarCollapsed)
	if err != nil {
		return false, err
	}
	collapsed := current != "true"
	if err := s.prefs.Set(ctx, models.PrefSidebarCollapsed, strconv.FormatBool(collapsed)); err != nil {
		return false, err
	}
	return collapsed, nil
}
