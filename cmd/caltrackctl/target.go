package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/caltrack/internal/catalog"
	"github.com/mmynk/caltrack/internal/energy"
)

var (
	targetAge      int
	targetSex      string
	targetWeight   float64
	targetHeight   float64
	targetActivity string
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Compute basal rate and daily energy target",
	RunE: func(cmd *cobra.Command, args []string) error {
		sex, err := energy.ParseSex(targetSex)
		if err != nil {
			return err
		}
		level, err := energy.ParseActivityLevel(targetActivity)
		if err != nil {
			return err
		}
		if err := energy.ValidateBody(targetAge, targetWeight, targetHeight); err != nil {
			return err
		}
		basal, err := energy.BasalRate(targetAge, sex, targetWeight, targetHeight)
		if err != nil {
			return err
		}
		target, err := energy.DailyTarget(basal, level)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Basal rate:   %.3f kcal\n", basal)
		fmt.Fprintf(out, "Activity:     %s\n", energy.Label(level))
		fmt.Fprintf(out, "Daily target: %d kcal\n", target)
		return nil
	},
}

var foodsCategory string

var foodsCmd = &cobra.Command{
	Use:   "foods [query]",
	Short: "Search the built-in food catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "ID\tNAME\tCATEGORY\tKCAL/100G")
		for _, f := range catalog.Search(query, catalog.Category(foodsCategory)) {
			fmt.Fprintf(out, "%s\t%s\t%s\t%d\n", f.ID, f.Name, f.Category, f.CaloriesPer100g)
		}
		return nil
	},
}

func init() {
	targetCmd.Flags().IntVar(&targetAge, "age", 0, "Age in years (10-120)")
	targetCmd.Flags().StringVar(&targetSex, "sex", "", "male or female")
	targetCmd.Flags().Float64Var(&targetWeight, "weight", 0, "Weight in kg (20-300)")
	targetCmd.Flags().Float64Var(&targetHeight, "height", 0, "Height in cm (100-250)")
	targetCmd.Flags().StringVar(&targetActivity, "activity", "moderate", "sedentary, light, moderate or intense")
	targetCmd.MarkFlagRequired("age")
	targetCmd.MarkFlagRequired("sex")
	targetCmd.MarkFlagRequired("weight")
	targetCmd.MarkFlagRequired("height")

	foodsCmd.Flags().StringVar(&foodsCategory, "category", "", "Restrict to one category")

	rootCmd.AddCommand(targetCmd, foodsCmd)
}
