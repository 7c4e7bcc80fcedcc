package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/jalali"
)

type dateOutput struct {
	Input     string `json:"input" yaml:"input"`
	Jalali    string `json:"jalali,omitempty" yaml:"jalali,omitempty"`
	Gregorian string `json:"gregorian,omitempty" yaml:"gregorian,omitempty"`
	Weekday   string `json:"weekday,omitempty" yaml:"weekday,omitempty"`
}

func newDateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "date",
		Short: "Convert dates between the Jalali and Gregorian calendars",
		Long: `Convert dates between the Jalali and Gregorian calendars. Persian and
Arabic-Indic digits are accepted.

Examples:
  authorpanel date to-gregorian 1404/01/15
  authorpanel date to-jalali 2025-04-04
  authorpanel date normalize "۱۴۰۴/۰۱/۱۵ 10:00"`,
	}

	toGregorian := &cobra.Command{
		Use:   "to-gregorian <YYYY/MM/DD>",
		Short: "Convert a Jalali date to Gregorian",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(_ *cobra.Command, args []string) error {
			jy, jm, jd, err := parseYMD(args[0])
			if err != nil {
				return err
			}
			if !jalali.Valid(jy, jm, jd) {
				return fmt.Errorf("%s is not a valid Jalali date", args[0])
			}
			gy, gm, gd, err := jalali.ToGregorian(jy, jm, jd)
			if err != nil {
				return err
			}
			g := time.Date(gy, time.Month(gm), gd, 0, 0, 0, 0, time.UTC)
			return a.printDate(dateOutput{
				Input:     args[0],
				Jalali:    fmt.Sprintf("%04d/%02d/%02d", jy, jm, jd),
				Gregorian: g.Format("2006-01-02"),
				Weekday:   g.Weekday().String(),
			}, g.Format("2006-01-02"))
		}),
	}

	toJalali := &cobra.Command{
		Use:   "to-jalali [YYYY-MM-DD]",
		Short: "Convert a Gregorian date to Jalali (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(_ *cobra.Command, args []string) error {
			g := a.now()
			input := g.Format("2006-01-02")
			if len(args) == 1 {
				input = args[0]
				gy, gm, gd, err := parseYMD(input)
				if err != nil {
					return err
				}
				g = time.Date(gy, time.Month(gm), gd, 0, 0, 0, 0, time.UTC)
				if g.Year() != gy || int(g.Month()) != gm || g.Day() != gd {
					return fmt.Errorf("%s is not a valid Gregorian date", input)
				}
			}
			j := jalali.FormatJalali(g)
			if j == "" {
				return jalali.ErrOutOfRange
			}
			return a.printDate(dateOutput{
				Input:     input,
				Jalali:    j,
				Gregorian: g.Format("2006-01-02"),
				Weekday:   g.Weekday().String(),
			}, j)
		}),
	}

	normalize := &cobra.Command{
		Use:   "normalize <value>",
		Short: "Rewrite a date or timestamp in either calendar as a Gregorian ISO value",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(_ *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			out := jalali.NormalizeISO(input)
			return a.printDate(dateOutput{Input: input, Gregorian: out}, out)
		}),
	}

	cmd.AddCommand(toGregorian, toJalali, normalize)
	return cmd
}

func (a *app) printDate(out dateOutput, plain string) error {
	if ok, err := a.printStructured(out); ok {
		return err
	}
	fmt.Fprintln(a.out, plain)
	return nil
}

// parseYMD splits "YYYY-MM-DD" or "YYYY/MM/DD" in any digit script.
func parseYMD(s string) (int, int, int, error) {
	clean := strings.TrimSpace(jalali.NormalizeDigits(s))
	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '-' || r == '/' })
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%q: want YYYY/MM/DD", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%q: want YYYY/MM/DD", s)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}
