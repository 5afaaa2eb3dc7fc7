// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/skylab-edu/cosmicwatch/internal/logging"
	"github.com/skylab-edu/cosmicwatch/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

// startHub runs a hub under a cancelable context and returns the stop func.
func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("hub did not stop")
		}
	})
	time.Sleep(10 * time.Millisecond)
	return hub, cancel
}

// newFakeClient builds a client without a network connection; only the send
// channel is exercised by the hub.
func newFakeClient(hub *Hub) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		send: make(chan Message, 256),
	}
}

func registerClient(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.Register <- c
	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func testReading() models.Reading {
	return models.Reading{
		Timestamp: "2025-06-16-10-00-00.000000",
		ADC:       "300",
		Vol:       "1.2",
		Deadtime:  "5",
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub, _ := startHub(t)

	client := newFakeClient(hub)
	registerClient(t, hub, client)
	if got := hub.GetClientCount(); got != 1 {
		t.Fatalf("client count = %d, want 1", got)
	}

	hub.Unregister <- client
	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The hub closes the send channel on unregister.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Error("send channel was not closed")
	}
}

func TestBroadcastReading(t *testing.T) {
	hub, _ := startHub(t)

	first := newFakeClient(hub)
	second := newFakeClient(hub)
	registerClient(t, hub, first)
	hub.Register <- second
	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() != 2 {
		if time.Now().After(deadline) {
			t.Fatal("second client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.BroadcastReading("det01", testReading())

	for _, client := range []*Client{first, second} {
		select {
		case msg := <-client.send:
			if msg.Type != MessageTypeReading {
				t.Errorf("message type = %q, want %q", msg.Type, MessageTypeReading)
			}
			event, ok := msg.Data.(ReadingEvent)
			if !ok {
				t.Fatalf("message data is %T, want ReadingEvent", msg.Data)
			}
			if event.Identifier != "det01" {
				t.Errorf("identifier = %q, want det01", event.Identifier)
			}
			if event.Reading != testReading() {
				t.Errorf("reading = %+v", event.Reading)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive the broadcast")
		}
	}
}

func TestBroadcastWithoutClientsDoesNotBlock(t *testing.T) {
	hub, _ := startHub(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.BroadcastReading("det01", testReading())
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked with no clients connected")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()
	time.Sleep(10 * time.Millisecond)

	client := newFakeClient(hub)
	registerClient(t, hub, client)

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop on context cancellation")
	}

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel after shutdown")
		}
	default:
		t.Error("send channel should be closed after shutdown")
	}

	if got := hub.GetClientCount(); got != 0 {
		t.Errorf("client count after shutdown = %d, want 0", got)
	}
}
