package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Joseda-hg/lazyjournal/internal/attachment"
	"github.com/Joseda-hg/lazyjournal/internal/db"
	"github.com/Joseda-hg/lazyjournal/internal/model"
	"github.com/Joseda-hg/lazyjournal/internal/view"
)

var (
	addDescription string
	addType        string
	addDate        string
	addImages      []string

	listTab  string
	listDate string
	listJSON bool

	ocrLanguages string
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a record",
	Long: `Add a record without opening the terminal UI.

Examples:
  # A day record for today
  lazyjournal add "Buy milk"

  # A month goal with a photo
  lazyjournal add "Read two books" --type month --image cover.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the records a tab shows",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Flip a record between open and completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggle,
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a record and its attachments",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var ocrCmd = &cobra.Command{
	Use:   "ocr <image>",
	Short: "Print the text recognized in an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runOCR,
}

func init() {
	addCmd.Flags().StringVarP(&addDescription, "description", "m", "", "record description")
	addCmd.Flags().StringVarP(&addType, "type", "t", string(model.TypeDay), "record type: day, month or year")
	addCmd.Flags().StringVar(&addDate, "date", "", "filing date (YYYY-MM-DD), defaults to today")
	addCmd.Flags().StringArrayVarP(&addImages, "image", "i", nil, "image file to attach (repeatable)")

	listCmd.Flags().StringVar(&listTab, "tab", string(view.TabDay), "tab: day, month, year or incomplete")
	listCmd.Flags().StringVar(&listDate, "date", "", "selected date (YYYY-MM-DD), defaults to today")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")

	ocrCmd.Flags().StringVar(&ocrLanguages, "languages", "", "tesseract languages, defaults to the configured ones")
}

func runAdd(cmd *cobra.Command, args []string) error {
	recordType, err := model.ParseType(addType)
	if err != nil {
		return err
	}
	now := time.Now()
	createdAt, err := parseDateFlag(addDate, now)
	if err != nil {
		return err
	}

	images := make([]model.Image, 0, len(addImages))
	for _, path := range addImages {
		img, err := attachment.Load(path)
		if err != nil {
			return err
		}
		images = append(images, img)
	}

	rt, err := setup(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.store.Add(cmd.Context(), db.TaskInput{
		Title:       strings.Join(args, " "),
		Description: addDescription,
		Type:        recordType,
		Images:      images,
		CreatedAt:   createdAt,
	})
	if err != nil {
		return err
	}
	rt.logger.Info("record added from cli", zap.Int64("id", id), zap.Int("images", len(images)))
	fmt.Fprintf(cmd.OutOrStdout(), "added #%d\n", id)
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	tab, err := view.ParseTab(listTab)
	if err != nil {
		return err
	}
	now := time.Now()
	selected, err := parseDateFlag(listDate, now)
	if err != nil {
		return err
	}

	rt, err := setup(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	all, err := rt.store.List(cmd.Context())
	if err != nil {
		return err
	}
	tasks := view.Visible(all, tab, selected, nil, now)

	if listJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(tasks)
	}
	printTasks(cmd.OutOrStdout(), tasks)
	return nil
}

func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "nothing here")
		return
	}
	for _, task := range tasks {
		check := "[ ]"
		if task.Completed {
			check = "[x]"
		}
		line := fmt.Sprintf("%4d %s %s %-5s %s", task.ID, check, task.CreatedAt.Format("2006-01-02"), task.Type, task.Title)
		if count := len(task.Attachments()); count > 0 {
			line += fmt.Sprintf(" +%d img", count)
		}
		fmt.Fprintln(w, line)
	}
}

func runToggle(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	rt, err := setup(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	task, err := rt.store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	completed := !task.Completed
	if _, err := rt.store.Update(cmd.Context(), id, db.TaskPatch{Completed: &completed}); err != nil {
		return err
	}

	state := "open"
	if completed {
		state = "completed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n", id, state)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	rt, err := setup(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.store.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted #%d\n", id)
	return nil
}

func runOCR(cmd *cobra.Command, args []string) error {
	img, err := attachment.Load(args[0])
	if err != nil {
		return err
	}

	rt, err := setup(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if ocrLanguages != "" {
		rt.cfg.OCR.Languages = ocrLanguages
	}
	text, err := newScanner(rt).Scan(cmd.Context(), img, func(progress int) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\rreading text %3d%%", progress)
	})
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if text == "" {
		return errors.New("no text found")
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

// parseDateFlag keeps the current time of day so a record filed for another
// date still sorts like one added now.
func parseDateFlag(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	date, err := time.ParseInLocation("2006-01-02", value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return date.Add(now.Sub(view.StartOfDay(now))), nil
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", value)
	}
	return id, nil
}
