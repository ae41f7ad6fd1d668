package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vuen/kiosk/internal/config"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var controlClient = &http.Client{Timeout: 5 * time.Second}

func controlGet(cfg *config.Config, path string, out any) error {
	resp, err := controlClient.Get("http://" + cfg.Control.Addr + path)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func controlPost(cfg *config.Config, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := controlClient.Post("http://"+cfg.Control.Addr+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running kiosk's state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		var state struct {
			ClientID      string `json:"client_id"`
			OrderStatus   int    `json:"order_status"`
			PushConnected bool   `json:"push_connected"`
			Surface       struct {
				Surface string  `json:"surface"`
				Total   float64 `json:"total"`
				Badge   int     `json:"badge"`
			} `json:"surface"`
		}
		if err := controlGet(cfg, "/api/state", &state); err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "client:  %s\n", state.ClientID)
		fmt.Fprintf(os.Stdout, "status:  %d\n", state.OrderStatus)
		fmt.Fprintf(os.Stdout, "surface: %s\n", state.Surface.Surface)
		fmt.Fprintf(os.Stdout, "push:    %v\n", state.PushConnected)
		fmt.Fprintf(os.Stdout, "items:   %d ($%.2f)\n", state.Surface.Badge, state.Surface.Total)
		return nil
	},
}
