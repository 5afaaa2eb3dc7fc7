// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

// Package main is the CosmicWatch uploader CLI.
//
// The serial acquisition script on the detector host writes day-files
// locally (data/YYYY-MM-DD.dat). This tool replays those files to a
// CosmicWatch server: it logs in, makes sure the measurement identifier is
// set up, and uploads each reading through the same endpoint the live
// firmware uses.
//
// Usage:
//
//	cosmicwatch-uploader register --server URL --id det01 --password pw --comment "roof, Tokyo" --lat 35.67 --lon 139.65
//	cosmicwatch-uploader replay data/2025-06-16.dat --server URL --id det01 --password pw
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	deviceID  string
	password  string

	comment   string
	latitude  string
	longitude string

	interval time.Duration
)

type authResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Error   string `json:"error"`
}

type checkIDResponse struct {
	Exists bool `json:"exists"`
}

type uploadResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// client wraps the REST calls against a CosmicWatch server.
type client struct {
	rest  *resty.Client
	token string
}

func newClient(baseURL string) *client {
	return &client{
		rest: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(2 * time.Second),
	}
}

func (c *client) login(id, password string) error {
	var out authResponse
	resp, err := c.rest.R().
		SetBody(map[string]string{"id": id, "password": password}).
		SetResult(&out).
		SetError(&out).
		Post("/auth/login")
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	if resp.IsError() || !out.Success {
		return fmt.Errorf("login rejected: %s", errorText(out.Error, resp.Status()))
	}
	c.token = out.Token
	c.rest.SetAuthToken(out.Token)
	return nil
}

func (c *client) register(id, password, comment, lat, lon string) error {
	body := map[string]interface{}{"id": id, "password": password, "comment": comment}
	if lat != "" {
		body["gps_latitude"] = lat
	}
	if lon != "" {
		body["gps_longitude"] = lon
	}

	var out authResponse
	resp, err := c.rest.R().
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/auth/register")
	if err != nil {
		return fmt.Errorf("register request failed: %w", err)
	}
	if resp.IsError() || !out.Success {
		return fmt.Errorf("registration rejected: %s", errorText(out.Error, resp.Status()))
	}
	return nil
}

func (c *client) identifierExists(id string) (bool, error) {
	var out checkIDResponse
	resp, err := c.rest.R().
		SetResult(&out).
		Get("/check-id/" + id)
	if err != nil {
		return false, fmt.Errorf("check-id request failed: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("check-id rejected: %s", resp.Status())
	}
	return out.Exists, nil
}

func (c *client) setupIdentifier(id, comment, lat, lon string) error {
	body := map[string]interface{}{
		"id":         id,
		"comment":    comment,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if lat != "" {
		body["gps_latitude"] = lat
	}
	if lon != "" {
		body["gps_longitude"] = lon
	}

	var out uploadResponse
	resp, err := c.rest.R().
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/setup-id")
	if err != nil {
		return fmt.Errorf("setup-id request failed: %w", err)
	}
	if resp.IsError() || !out.Success {
		return fmt.Errorf("setup-id rejected: %s", errorText(out.Error, resp.Status()))
	}
	return nil
}

func (c *client) uploadReading(id, adc, timestamp, vol, deadtime string) error {
	var out uploadResponse
	resp, err := c.rest.R().
		SetBody(map[string]string{
			"adc":       adc,
			"timestamp": timestamp,
			"vol":       vol,
			"deadtime":  deadtime,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/upload-data/" + id)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	if resp.IsError() || !out.Success {
		return fmt.Errorf("upload rejected: %s", errorText(out.Error, resp.Status()))
	}
	return nil
}

func errorText(apiError, status string) string {
	if apiError != "" {
		return apiError
	}
	return status
}

// replayFile uploads every reading of one local day-file in order.
func replayFile(c *client, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	uploaded := 0
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 4 {
			fmt.Fprintf(os.Stderr, "skipping short line: %q\n", line)
			continue
		}
		if err := c.uploadReading(deviceID, cols[0], cols[1], cols[2], cols[3]); err != nil {
			return uploaded, fmt.Errorf("line %d: %w", uploaded+1, err)
		}
		uploaded++
		if interval > 0 {
			time.Sleep(interval)
		}
	}
	return uploaded, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cosmicwatch-uploader",
		Short:         "Upload CosmicWatch detector day-files to a server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "server base URL")
	root.PersistentFlags().StringVar(&deviceID, "id", "", "measurement identifier / account id")
	root.PersistentFlags().StringVar(&password, "password", "", "account password")

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register a detector account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deviceID == "" || password == "" {
				return fmt.Errorf("--id and --password are required")
			}
			c := newClient(serverURL)
			if err := c.register(deviceID, password, comment, latitude, longitude); err != nil {
				return err
			}
			fmt.Printf("registered %s\n", deviceID)
			return nil
		},
	}
	registerCmd.Flags().StringVar(&comment, "comment", "", "detector description")
	registerCmd.Flags().StringVar(&latitude, "lat", "", "GPS latitude")
	registerCmd.Flags().StringVar(&longitude, "lon", "", "GPS longitude")

	replayCmd := &cobra.Command{
		Use:   "replay FILE...",
		Short: "Replay local day-files to the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deviceID == "" || password == "" {
				return fmt.Errorf("--id and --password are required")
			}

			c := newClient(serverURL)
			if err := c.login(deviceID, password); err != nil {
				return err
			}

			exists, err := c.identifierExists(deviceID)
			if err != nil {
				return err
			}
			if !exists {
				if err := c.setupIdentifier(deviceID, comment, latitude, longitude); err != nil {
					return err
				}
				fmt.Printf("set up identifier %s\n", deviceID)
			}

			for _, path := range args {
				n, err := replayFile(c, path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Printf("%s: uploaded %d readings\n", path, n)
			}
			return nil
		},
	}
	replayCmd.Flags().StringVar(&comment, "comment", "", "detector description (used if setup is needed)")
	replayCmd.Flags().StringVar(&latitude, "lat", "", "GPS latitude (used if setup is needed)")
	replayCmd.Flags().StringVar(&longitude, "lon", "", "GPS longitude (used if setup is needed)")
	replayCmd.Flags().DurationVar(&interval, "interval", 0, "pause between uploads (0 = as fast as possible)")

	root.AddCommand(registerCmd, replayCmd)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
