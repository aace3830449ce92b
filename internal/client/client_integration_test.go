//go:build integration
// +build integration

package client

import (
	"context"
	"testing"
	"time"
)

// TestWttrClient_Integration hits the live provider. Run with -tags=integration.
func TestWttrClient_Integration(t *testing.T) {
	c, err := NewWttrClient("https://wttr.in", 10*time.Second)
	if err != nil {
		t.Fatalf("NewWttrClient() error = %v", err)
	}
	rec, err := c.GetCurrentWeather(context.Background(), "London")
	if err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}
	if rec.ResolvedCity == "" || rec.Description == "" {
		t.Errorf("incomplete record: %+v", rec)
	}
	t.Logf("London: %.1f°C, %s", rec.Temperature, rec.Description)
}
