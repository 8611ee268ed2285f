package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ashureev/fitcoach/internal/api"
	"github.com/ashureev/fitcoach/internal/measure"
	"github.com/spf13/cobra"
)

func newBMICmd() *cobra.Command {
	var (
		req    api.BMIRequest
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "bmi",
		Short: "Compute BMI and the healthy weight range",
		Example: "  coach bmi --height-cm 175 --weight 70\n" +
			"  coach bmi --units imperial --feet 5 --inches 10 --weight 170",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := api.ComputeBMI(req)
			if err != nil {
				return err
			}
			return printBMI(cmd.OutOrStdout(), resp, asJSON)
		},
	}
	cmd.Flags().StringVar(&req.Units, "units", "metric", "metric or imperial")
	cmd.Flags().Float64Var(&req.HeightCm, "height-cm", 0, "height in centimeters (metric)")
	cmd.Flags().Float64Var(&req.Feet, "feet", 0, "height feet (imperial)")
	cmd.Flags().Float64Var(&req.Inches, "inches", 0, "height inches (imperial)")
	cmd.Flags().Float64Var(&req.Weight, "weight", 0, "weight in kg (metric) or lbs (imperial)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("weight")
	return cmd
}

func printBMI(w io.Writer, resp api.BMIResponse, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(w, "BMI: %s (%s)\n", resp.BMIDisplay, resp.Category)
	fmt.Fprintf(w, "Healthy range: %s - %s %s\n",
		measure.Format1(resp.HealthyRange.Low), measure.Format1(resp.HealthyRange.High), resp.HealthyRange.Unit)
	switch resp.Position {
	case "below":
		fmt.Fprintf(w, "Gain about %s %s to reach it.\n", measure.Format1(resp.Delta), resp.HealthyRange.Unit)
	case "above":
		fmt.Fprintf(w, "Lose about %s %s to reach it.\n", measure.Format1(resp.Delta), resp.HealthyRange.Unit)
	default:
		fmt.Fprintln(w, "You are within the healthy range.")
	}
	return nil
}
