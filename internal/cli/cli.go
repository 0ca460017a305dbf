package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pfrederiksen/schedule-planner/internal/catalog"
	"github.com/pfrederiksen/schedule-planner/internal/config"
	"github.com/pfrederiksen/schedule-planner/internal/filter"
	"github.com/pfrederiksen/schedule-planner/internal/instructor"
	"github.com/pfrederiksen/schedule-planner/internal/logger"
	"github.com/pfrederiksen/schedule-planner/internal/sections"
	"github.com/pfrederiksen/schedule-planner/internal/storage"
	"github.com/pfrederiksen/schedule-planner/internal/timetable"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitNotFound = 2
)

// errNotFound is returned after output was written when no requested term
// had any lectures for the course
var errNotFound = errors.New("no sections found")

var (
	flagPrefix     string
	flagCode       int
	flagTerms      []int
	flagUpdateInfo bool
	flagRatings    bool
	flagSort       string
	flagDays       string
	flagWithin     string
	flagInstructor []string
	flagOpen       bool
	flagMinRating  float64
	flagDataDir    string
	flagFormat     string
	flagVerbose    bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule-planner",
		Short: "Fetch course sections from the WWU timetable",
		Long: `A CLI tool to fetch the lecture and lab sections of a course from the
WWU TimeTable of Classes. Fetched terms are kept on disk and each refresh
reports sections that appeared, disappeared or changed enrollment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory for course files (default from DATA_DIR)")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(newFetchCmd(), newSubjectsCmd(), newTermsCmd(), newListCmd(), newShowCmd())

	return cmd
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a course's sections for one or more terms",
		Example: `  schedule-planner fetch --prefix CSCI --code 241 --term 202440
  schedule-planner fetch --prefix MATH --code 204 --term 202440 --term 202510 --ratings --format json`,
		RunE: runFetch,
	}

	cmd.Flags().StringVar(&flagPrefix, "prefix", "", "Subject prefix, e.g. CSCI (required)")
	cmd.Flags().IntVar(&flagCode, "code", 0, "Course number, e.g. 241 (required)")
	cmd.Flags().IntSliceVar(&flagTerms, "term", nil, "Term code, e.g. 202440 (repeatable, required)")
	cmd.Flags().BoolVar(&flagUpdateInfo, "update-info", false, "Overwrite stored course name and credits")
	cmd.Flags().BoolVar(&flagRatings, "ratings", false, "Look up instructor ratings (default from RESOLVE_INSTRUCTORS)")
	cmd.Flags().StringVar(&flagSort, "sort", string(SortByCRN), "Section order: crn, time, seats or rating")
	addFilterFlags(cmd)

	cmd.MarkFlagRequired("prefix")
	cmd.MarkFlagRequired("code")
	cmd.MarkFlagRequired("term")

	return cmd
}

func newSubjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List the subject prefixes the timetable offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptions(cmd, "subjects", (*timetable.Session).Subjects)
		},
	}
}

func newTermsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terms",
		Short: "List the term codes the timetable offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptions(cmd, "terms", (*timetable.Session).Terms)
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the courses saved in the data directory",
		RunE:  runList,
	}
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a saved course without contacting the timetable",
		RunE:  runShow,
	}

	cmd.Flags().StringVar(&flagPrefix, "prefix", "", "Subject prefix (required)")
	cmd.Flags().IntVar(&flagCode, "code", 0, "Course number (required)")
	cmd.Flags().IntSliceVar(&flagTerms, "term", nil, "Only show these terms")
	cmd.Flags().StringVar(&flagSort, "sort", string(SortByCRN), "Section order: crn, time, seats or rating")
	addFilterFlags(cmd)

	cmd.MarkFlagRequired("prefix")
	cmd.MarkFlagRequired("code")

	return cmd
}

// addFilterFlags defines the flags that narrow the displayed sections
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagDays, "days", "", "Only sections meeting on these days, e.g. MWF")
	cmd.Flags().StringVar(&flagWithin, "within", "", "Only sections inside a time window, e.g. '9:00-2:00 pm'")
	cmd.Flags().StringSliceVar(&flagInstructor, "instructor", nil, "Only sections taught by these instructors (substring match)")
	cmd.Flags().BoolVar(&flagOpen, "open", false, "Only sections with open seats")
	cmd.Flags().Float64Var(&flagMinRating, "min-rating", 0, "Only sections whose instructor is rated at least this high")
}

// buildFilter turns the filter flags into a Filter
func buildFilter() (*filter.Filter, error) {
	f := filter.NewFilter()
	f.Days = strings.TrimSpace(flagDays)
	f.OpenOnly = flagOpen
	f.MinRating = flagMinRating
	for _, name := range flagInstructor {
		if name = strings.TrimSpace(name); name != "" {
			f.Instructors = append(f.Instructors, name)
		}
	}
	if flagWithin != "" {
		w, err := filter.ParseWindow(flagWithin)
		if err != nil {
			return nil, err
		}
		f.Within = &w
	}
	return f, nil
}

// setup loads configuration, applies flag overrides and installs the logger
func setup() (*config.Config, OutputFormat, error) {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return nil, "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	cfg := config.Load()
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagRatings {
		cfg.ResolveInstructors = true
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, os.Stderr))

	return cfg, format, nil
}

func newNavigator(cfg *config.Config) (*timetable.Navigator, error) {
	page, err := timetable.NewHTTPPage(cfg.HTTPTimeout, cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("initializing page: %w", err)
	}

	opts := timetable.DefaultOptions(cfg.TimetableURL, cfg.TimetableTitle)
	opts.Retries = cfg.FetchRetries
	return timetable.New(page, opts), nil
}

// runFetch is the main command logic
func runFetch(cmd *cobra.Command, args []string) error {
	prefix := strings.ToUpper(strings.TrimSpace(flagPrefix))
	if prefix == "" {
		return fmt.Errorf("--prefix is required")
	}
	if flagCode <= 0 {
		return fmt.Errorf("--code must be a positive course number")
	}
	if len(flagTerms) == 0 {
		return fmt.Errorf("at least one --term is required")
	}
	order, err := parseSortOrder(flagSort)
	if err != nil {
		return err
	}
	sectionFilter, err := buildFilter()
	if err != nil {
		return err
	}

	cfg, format, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	logger.Debug("Fetching course", logger.Fields{
		"course":   fmt.Sprintf("%s %d", prefix, flagCode),
		"terms":    flagTerms,
		"url":      cfg.TimetableURL,
		"data_dir": cfg.DataDir,
	})

	// Initialize storage
	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	nav, err := newNavigator(cfg)
	if err != nil {
		return err
	}

	parser := sections.NewParser()
	var cache *instructor.Cache
	if cfg.ResolveInstructors {
		cache, err = store.LoadInstructors(cfg.InstructorTTL)
		if err != nil {
			return fmt.Errorf("loading instructor cache: %w", err)
		}
		client := instructor.NewClient(cfg.SearchURL, cfg.RatingsDomain, cfg.UserAgent, cfg.HTTPTimeout)
		parser.Resolver = instructor.NewCachingResolver(client, cache)
	}

	// Load the previous fetch, if any
	rec, err := store.LoadCourse(prefix, flagCode)
	if err != nil {
		return fmt.Errorf("loading course: %w", err)
	}

	var course *catalog.Course
	if rec != nil {
		course, err = catalog.Restore(rec, nav, catalog.WithParser(parser))
	} else {
		course, err = catalog.New(ctx, nav, prefix, flagCode, nil, catalog.WithParser(parser))
	}
	if err != nil {
		return fmt.Errorf("loading course: %w", err)
	}

	result := &OutputResult{
		CheckedAt: time.Now().UTC(),
		Course:    fmt.Sprintf("%s %d", prefix, flagCode),
		Terms:     make([]TermResult, 0, len(flagTerms)),
	}
	if !sectionFilter.IsEmpty() {
		result.Filter = sectionFilter.String()
	}

	found := false
	for _, term := range flagTerms {
		previous, hadTerm := course.Sections(term)

		available, err := course.AddTerm(ctx, term, flagUpdateInfo)
		if err != nil {
			return fmt.Errorf("fetching term %d: %w", term, err)
		}

		found = found || available

		lectures, _ := course.Sections(term)
		tr := TermResult{Term: term, Available: available}
		if hadTerm {
			diff := catalog.DiffTerm(previous, lectures)
			tr.Changes = &diff
		}

		tr.Lectures = sectionFilter.Apply(lectures)
		sortLectures(tr.Lectures, order)
		result.Terms = append(result.Terms, tr)
		result.SectionCount += len(tr.Lectures)
	}
	result.Name = course.Name()
	result.Credits = course.Credits()

	if err := store.SaveCourse(course.Record()); err != nil {
		return fmt.Errorf("saving course: %w", err)
	}
	if cache != nil {
		if err := store.SaveInstructors(cache); err != nil {
			return fmt.Errorf("saving instructor cache: %w", err)
		}
	}

	if err := WriteOutput(cmd.OutOrStdout(), result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if !found {
		return errNotFound
	}
	return nil
}

// runOptions lists one of the form's select controls
func runOptions(cmd *cobra.Command, what string, list func(*timetable.Session, context.Context) ([]timetable.Option, error)) error {
	cfg, format, err := setup()
	if err != nil {
		return err
	}

	nav, err := newNavigator(cfg)
	if err != nil {
		return err
	}

	var options []timetable.Option
	err = nav.Do(cmd.Context(), func(s *timetable.Session) error {
		var err error
		options, err = list(s, cmd.Context())
		return err
	})
	if err != nil {
		return fmt.Errorf("listing %s: %w", what, err)
	}

	return WriteOptions(cmd.OutOrStdout(), options, format)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, format, err := setup()
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	courses, err := store.ListCourses()
	if err != nil {
		return err
	}

	return WriteCourseList(cmd.OutOrStdout(), courses, format)
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := strings.ToUpper(strings.TrimSpace(flagPrefix))
	order, err := parseSortOrder(flagSort)
	if err != nil {
		return err
	}
	sectionFilter, err := buildFilter()
	if err != nil {
		return err
	}

	cfg, format, err := setup()
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	rec, err := store.LoadCourse(prefix, flagCode)
	if err != nil {
		return fmt.Errorf("loading course: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("%w: %s %d has not been fetched", errNotFound, prefix, flagCode)
	}

	course, err := catalog.Restore(rec, nil)
	if err != nil {
		return err
	}

	terms := flagTerms
	if len(terms) == 0 {
		terms = course.Terms()
	}

	result := &OutputResult{
		CheckedAt: course.UpdatedAt(),
		Course:    fmt.Sprintf("%s %d", course.Prefix(), course.Code()),
		Name:      course.Name(),
		Credits:   course.Credits(),
		Terms:     make([]TermResult, 0, len(terms)),
	}
	if !sectionFilter.IsEmpty() {
		result.Filter = sectionFilter.String()
	}
	for _, term := range terms {
		lectures, ok := course.Sections(term)
		if !ok {
			lectures = make([]*sections.Lecture, 0)
		}
		tr := TermResult{Term: term, Available: len(lectures) > 0, Lectures: sectionFilter.Apply(lectures)}
		sortLectures(tr.Lectures, order)
		result.Terms = append(result.Terms, tr)
		result.SectionCount += len(tr.Lectures)
	}

	return WriteOutput(cmd.OutOrStdout(), result, format, flagVerbose)
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errNotFound):
		return ExitNotFound
	default:
		return ExitError
	}
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}
