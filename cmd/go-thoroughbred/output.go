package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/toozej/go-thoroughbred/internal/services/scraper"
	"github.com/toozej/go-thoroughbred/internal/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printDetail writes a human readable summary of one horse.
func printDetail(w io.Writer, d *types.HorseDetailData) error {
	name := d.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(w, "%s [%s]\n", name, d.ExternalID)
	if d.Owner != "" {
		fmt.Fprintf(w, "Owner:    %s\n", d.Owner)
	}
	if d.Breeder != "" {
		fmt.Fprintf(w, "Breeder:  %s\n", d.Breeder)
	}
	if p := d.Pedigree; !p.Sire.IsZero() || !p.Dam.IsZero() {
		fmt.Fprintf(w, "Pedigree: %s x %s\n", ancestor(p.Sire), ancestor(p.Dam))
	}
	if d.TotalEarnings != nil {
		fmt.Fprintf(w, "Earnings: %s\n", scraper.FormatCurrency(*d.TotalEarnings))
	}
	if all := d.Statistics.All; all != nil {
		fmt.Fprintf(w, "Career:   %d starts, %d-%d-%d\n", all.Races, all.Wins, all.Seconds, all.Thirds)
	}

	fmt.Fprintf(w, "\nRaces (%d)\n", len(d.Races))
	if len(d.Races) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tCITY\tDIST\tSURFACE\tPOS\tJOCKEY\tRACE")
		for _, r := range d.Races {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Date.Format(scraper.DateLayout), r.City, intOrDash(r.DistanceMeters),
				orDash(string(r.Surface)), orDash(r.Position), orDash(r.Jockey.Name), orDash(r.RaceName))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\nRegistrations (%d)\n", len(d.Registrations))
	if len(d.Registrations) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tCITY\tDIST\tSURFACE\tKIND\tJOCKEY")
		for _, r := range d.Registrations {
			jockey := "-"
			if r.Jockey != nil {
				jockey = r.Jockey.Name
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Date.Format(scraper.DateLayout), r.City, intOrDash(r.DistanceMeters),
				orDash(string(r.Surface)), r.Kind, jockey)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func ancestor(a types.Ancestor) string {
	switch {
	case a.IsZero():
		return "?"
	case a.Country != "":
		return a.Name + " (" + a.Country + ")"
	default:
		return a.Name
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func intOrDash(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}
