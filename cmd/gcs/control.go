package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/device"
)

func newControlCommand(o *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Change camera settings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "quality <10..55>",
			Short: "Set JPEG quality (lower is better)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				q, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("quality must be an integer: %w", err)
				}
				client, err := o.deviceClient()
				if err != nil {
					return err
				}
				if err := client.SetQuality(cmd.Context(), q); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s quality set to %d\n", okColor.Sprint("✓"), q)
				return nil
			},
		},
		&cobra.Command{
			Use:   "framesize <" + frameSizeNames() + ">",
			Short: "Set the sensor frame size",
			Long: `Set the sensor frame size. A running stream keeps the old size until it
reconnects; restart it to pick up the change.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				size, err := device.ParseFrameSize(args[0])
				if err != nil {
					return err
				}
				client, err := o.deviceClient()
				if err != nil {
					return err
				}
				if err := client.SetFrameSize(cmd.Context(), size); err != nil {
					return err
				}
				w, h := size.Dimensions()
				fmt.Fprintf(cmd.OutOrStdout(), "%s frame size set to %s (%dx%d)\n", okColor.Sprint("✓"), size, w, h)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <var> <value>",
			Short: "Set any control variable (/control?var=<var>&val=<value>)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				val, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("value must be an integer: %w", err)
				}
				client, err := o.deviceClient()
				if err != nil {
					return err
				}
				if err := client.Control(cmd.Context(), args[0], val); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s set to %d\n", okColor.Sprint("✓"), args[0], val)
				return nil
			},
		},
	)
	return cmd
}

func frameSizeNames() string {
	var names []string
	for _, f := range device.FrameSizes() {
		names = append(names, f.String())
	}
	return strings.Join(names, "|")
}
