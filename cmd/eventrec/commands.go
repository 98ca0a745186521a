package main

import (
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/rushteam/eventrec/learner"
	"github.com/rushteam/eventrec/service"
	"github.com/rushteam/eventrec/source"
)

var importCmd = &cobra.Command{
	Use:   "import [fixture]",
	Short: "Import events from a YAML fixture (defaults to source.fixture)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var src *source.StaticSource
		if len(args) == 1 {
			s, err := source.LoadStatic(args[0])
			if err != nil {
				return err
			}
			src = s
		} else if rt.Fixture != nil {
			src = rt.Fixture
		} else {
			return errors.New("no fixture given and source.fixture is not configured")
		}
		res, err := rt.Service.ImportRaw(cmd.Context(), "static", src.Events())
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Record a behavioral signal",
}

var signalSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Record a search",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		user, _ := f.GetString("user")
		query, _ := f.GetString("query")
		category, _ := f.GetString("category")
		country, _ := f.GetString("country")
		u, err := rt.Service.RecordSearchSignal(cmd.Context(), user, learner.SearchSignal{
			Query:    query,
			Category: category,
			Country:  country,
			PriceMin: floatFlag(cmd, "price-min"),
			PriceMax: floatFlag(cmd, "price-max"),
		})
		if err != nil {
			return err
		}
		return printJSON(u)
	},
}

var signalClickCmd = &cobra.Command{
	Use:   "click",
	Short: "Record a click",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		user, _ := f.GetString("user")
		sig := learner.ClickSignal{}
		sig.EventID, _ = f.GetString("event")
		sig.ExternalID, _ = f.GetString("external-id")
		sig.Source, _ = f.GetString("source")
		sig.Title, _ = f.GetString("title")
		sig.URL, _ = f.GetString("url")
		sig.Category, _ = f.GetString("category")
		sig.Country, _ = f.GetString("country")
		u, err := rt.Service.RecordClickSignal(cmd.Context(), user, sig)
		if err != nil {
			return err
		}
		return printJSON(u)
	},
}

var signalRateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Rate an event (1-5)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		user, _ := f.GetString("user")
		event, _ := f.GetString("event")
		rating, _ := f.GetInt("rating")
		comment, _ := f.GetString("comment")
		fb, err := rt.Service.RecordRatingSignal(cmd.Context(), user, event, rating, comment)
		if err != nil {
			return err
		}
		return printJSON(fb)
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank candidates for a user",
}

var recommendLiveCmd = &cobra.Command{
	Use:   "live",
	Short: "Rank live candidates from the event source",
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		items, err := rt.Service.RankLiveCandidates(cmd.Context(), user, limit)
		if err != nil {
			return err
		}
		return printItems(items)
	},
}

var recommendInternalCmd = &cobra.Command{
	Use:   "internal",
	Short: "Rank stored events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		items, err := rt.Service.RankInternalCandidates(cmd.Context(), user, limit)
		if err != nil {
			return err
		}
		return printItems(items)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Personalized search against the event source",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		user, _ := f.GetString("user")
		params := service.SearchParams{
			PriceMin: floatFlag(cmd, "price-min"),
			PriceMax: floatFlag(cmd, "price-max"),
		}
		params.Keyword, _ = f.GetString("keyword")
		params.Category, _ = f.GetString("category")
		params.Country, _ = f.GetString("country")
		params.PageSize, _ = f.GetInt("size")
		items, err := rt.Service.SearchEvents(cmd.Context(), user, params)
		if err != nil {
			return err
		}
		return printItems(items)
	},
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show a stored event and count the view",
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, _ := cmd.Flags().GetString("user")
		event, _ := cmd.Flags().GetString("event")
		e, err := rt.Service.ViewEvent(cmd.Context(), user, event)
		if err != nil {
			return err
		}
		return printJSON(e)
	},
}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or set user preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a user's preferences",
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, _ := cmd.Flags().GetString("user")
		u, err := rt.Service.GetUser(cmd.Context(), user)
		if err != nil {
			return err
		}
		return printJSON(u)
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set explicit preferences",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		user, _ := f.GetString("user")
		up := service.PreferenceUpdate{
			Location:         stringFlag(cmd, "location"),
			MaxDistanceKm:    floatFlag(cmd, "max-distance"),
			PriceMin:         floatFlag(cmd, "price-min"),
			PriceMax:         floatFlag(cmd, "price-max"),
			PreferredCountry: stringFlag(cmd, "preferred-country"),
			Lat:              floatFlag(cmd, "lat"),
			Lon:              floatFlag(cmd, "lon"),
			City:             stringFlag(cmd, "city"),
		}
		if f.Changed("categories") {
			up.Categories, _ = f.GetStringSlice("categories")
		}
		var err error
		if up.StartDate, err = dateFlag(cmd, "start-date"); err != nil {
			return err
		}
		if up.EndDate, err = dateFlag(cmd, "end-date"); err != nil {
			return err
		}
		u, err := rt.Service.UpdatePreferences(cmd.Context(), user, up)
		if err != nil {
			return err
		}
		return printJSON(u)
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "List ratings of an event",
	RunE: func(cmd *cobra.Command, _ []string) error {
		event, _ := cmd.Flags().GetString("event")
		list, err := rt.Service.ListFeedback(cmd.Context(), event)
		if err != nil {
			return err
		}
		return printJSON(list)
	},
}

func init() {
	for _, c := range []*cobra.Command{signalSearchCmd, signalClickCmd, signalRateCmd, recommendLiveCmd,
		recommendInternalCmd, searchCmd, viewCmd, prefsShowCmd, prefsSetCmd} {
		c.Flags().StringP("user", "u", "", "user id")
	}
	for _, c := range []*cobra.Command{signalSearchCmd, signalClickCmd, searchCmd} {
		c.Flags().String("category", "", "event category")
		c.Flags().String("country", "", "ISO2 country code")
	}
	for _, c := range []*cobra.Command{signalSearchCmd, searchCmd, prefsSetCmd} {
		c.Flags().Float64("price-min", 0, "minimum price")
		c.Flags().Float64("price-max", 0, "maximum price")
	}
	for _, c := range []*cobra.Command{recommendLiveCmd, recommendInternalCmd} {
		c.Flags().IntP("limit", "n", 0, "number of results (defaults to rank.limit)")
	}
	for _, c := range []*cobra.Command{signalClickCmd, signalRateCmd, viewCmd, feedbackCmd} {
		c.Flags().StringP("event", "e", "", "stored event id")
	}

	signalSearchCmd.Flags().StringP("query", "q", "", "search keywords")

	signalClickCmd.Flags().String("external-id", "", "event source record id")
	signalClickCmd.Flags().String("source", "", "event source name")
	signalClickCmd.Flags().String("title", "", "event title")
	signalClickCmd.Flags().String("url", "", "event url")

	signalRateCmd.Flags().Int("rating", 0, "rating 1-5")
	signalRateCmd.Flags().String("comment", "", "comment")

	searchCmd.Flags().StringP("keyword", "q", "", "search keywords")
	searchCmd.Flags().Int("size", 0, "page size")

	prefsSetCmd.Flags().StringSlice("categories", nil, "explicit categories")
	prefsSetCmd.Flags().String("location", "", "location text")
	prefsSetCmd.Flags().Float64("max-distance", 0, "max distance in km")
	prefsSetCmd.Flags().String("preferred-country", "", "ISO2 country override (WORLD clears)")
	prefsSetCmd.Flags().Float64("lat", 0, "latitude")
	prefsSetCmd.Flags().Float64("lon", 0, "longitude")
	prefsSetCmd.Flags().String("city", "", "city")
	prefsSetCmd.Flags().String("start-date", "", "start date (2006-01-02)")
	prefsSetCmd.Flags().String("end-date", "", "end date (2006-01-02)")

	signalCmd.AddCommand(signalSearchCmd, signalClickCmd, signalRateCmd)
	recommendCmd.AddCommand(recommendLiveCmd, recommendInternalCmd)
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd)
}

// floatFlag 只有显式设置的 flag 才返回非 nil
func floatFlag(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		return nil
	}
	return &v
}

func stringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	s := stringFlag(cmd, name)
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(*s))
	if err != nil {
		return nil, errors.Annotatef(err, "parse --%s", name)
	}
	return &t, nil
}
