// Package logview reads the request log the sketch classifier API writes and renders
// it for the terminal.
package logview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"go-vr-vision/internal/preprocess"
	"go-vr-vision/internal/repository"
	"go-vr-vision/pkg/models"

	"github.com/arbovm/levenshtein"
	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"
)

// DefaultListLimit is the number of records list shows without an argument.
const DefaultListLimit = 10

// Viewer renders records from a request repository.
type Viewer struct {
	repo repository.RequestRepository
	out  io.Writer
}

func NewViewer(repo repository.RequestRepository, out io.Writer) *Viewer {
	return &Viewer{repo: repo, out: out}
}

// List prints up to limit records, newest first.
func (v *Viewer) List(ctx context.Context, limit int) error {
	records, err := v.repo.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(v.out, "No requests logged yet.")
		return nil
	}

	var data [][]string
	for _, rec := range records {
		label, confidence := "-", "-"
		if top, ok := rec.TopPrediction(); ok {
			label, confidence = top.Label, top.ConfidencePercent
		}
		status := "ok"
		if !rec.Success {
			status = "error: " + rec.ErrorType
		}
		data = append(data, []string{
			rec.RequestID,
			rec.Source,
			rec.ClientIP,
			label,
			confidence,
			status,
		})
	}

	table := tablewriter.NewWriter(v.out)
	table.SetHeader([]string{"REQUEST ID", "SOURCE", "CLIENT", "TOP PREDICTION", "CONFIDENCE", "STATUS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
	return nil
}

// View prints one record. An unknown ID lists the closest logged IDs.
func (v *Viewer) View(ctx context.Context, requestID string) error {
	rec, err := v.repo.Get(ctx, requestID)
	if err != nil {
		return v.notFound(ctx, requestID, err)
	}

	fmt.Fprintf(v.out, "Request ID:   %s\n", rec.RequestID)
	fmt.Fprintf(v.out, "Timestamp:    %s\n", rec.Timestamp.Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(v.out, "Source:       %s\n", rec.Source)
	fmt.Fprintf(v.out, "Client:       %s:%s\n", rec.ClientIP, rec.ClientPort)
	if rec.UserAgent != "" {
		fmt.Fprintf(v.out, "User agent:   %s\n", rec.UserAgent)
	}
	if rec.Filename != "" {
		fmt.Fprintf(v.out, "Filename:     %s\n", rec.Filename)
	}
	if rec.Base64Length > 0 {
		fmt.Fprintf(v.out, "Base64 size:  %d chars\n", rec.Base64Length)
	}
	if rec.ImageFile != "" {
		fmt.Fprintf(v.out, "Image:        %s\n", rec.ImageFile)
	}
	fmt.Fprintf(v.out, "Duration:     %d ms\n", rec.DurationMs)

	if !rec.Success {
		fmt.Fprintf(v.out, "Error:        %s (%s at %s)\n", rec.Error, rec.ErrorType, rec.ErrorStage)
		return nil
	}

	fmt.Fprintf(v.out, "\nTop %d predictions:\n", rec.TopK)
	table := tablewriter.NewWriter(v.out)
	table.SetHeader([]string{"#", "LABEL", "CONFIDENCE"})
	table.SetBorder(false)
	for i, p := range rec.Predictions {
		table.Append([]string{strconv.Itoa(i + 1), p.Label, p.ConfidencePercent})
	}
	table.Render()
	return nil
}

func (v *Viewer) notFound(ctx context.Context, requestID string, cause error) error {
	if !errors.Is(cause, repository.ErrRecordNotFound) && !errors.Is(cause, repository.ErrInvalidRequestID) {
		return cause
	}
	ids, err := v.repo.IDs(ctx)
	if err != nil {
		return cause
	}
	if suggestions := Suggest(requestID, ids, 3); len(suggestions) > 0 {
		return fmt.Errorf("%w\ndid you mean:\n  %s", cause, strings.Join(suggestions, "\n  "))
	}
	return cause
}

// Decode writes the base64 payload of a request as a PNG to output and returns the
// path written. An empty output defaults to decoded_<id>.png.
func (v *Viewer) Decode(ctx context.Context, requestID, output string) (string, error) {
	payload, err := v.repo.LoadBase64(ctx, requestID)
	if err != nil {
		return "", v.notFound(ctx, requestID, err)
	}

	data, err := preprocess.DecodeBase64Payload(payload)
	if err != nil {
		return "", err
	}
	img, _, err := preprocess.DecodeImage(data)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	if output == "" {
		output = fmt.Sprintf("decoded_%s.png", requestID)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return "", err
	}

	b := img.Bounds()
	fmt.Fprintf(v.out, "Decoded %dx%d image to %s\n", b.Dx(), b.Dy(), output)
	return output, nil
}

// Summary aggregates a set of records.
type Summary struct {
	Total          int
	Succeeded      int
	Failed         int
	BySource       map[string]int
	TopLabels      []LabelCount
	MeanConfidence float64
	StdConfidence  float64
}

// LabelCount is how often a label was the top prediction.
type LabelCount struct {
	Label string
	Count int
}

// Summarize counts outcomes and top predictions. Confidence statistics cover
// successful records only.
func Summarize(records []*models.RequestRecord) Summary {
	s := Summary{Total: len(records), BySource: make(map[string]int)}
	counts := make(map[string]int)
	var confidences []float64

	for _, rec := range records {
		s.BySource[rec.Source]++
		if !rec.Success {
			s.Failed++
			continue
		}
		s.Succeeded++
		if top, ok := rec.TopPrediction(); ok {
			counts[top.Label]++
			confidences = append(confidences, top.Confidence)
		}
	}

	for label, n := range counts {
		s.TopLabels = append(s.TopLabels, LabelCount{Label: label, Count: n})
	}
	sort.Slice(s.TopLabels, func(i, j int) bool {
		if s.TopLabels[i].Count != s.TopLabels[j].Count {
			return s.TopLabels[i].Count > s.TopLabels[j].Count
		}
		return s.TopLabels[i].Label < s.TopLabels[j].Label
	})

	switch len(confidences) {
	case 0:
	case 1:
		s.MeanConfidence = confidences[0]
	default:
		s.MeanConfidence, s.StdConfidence = stat.MeanStdDev(confidences, nil)
	}
	return s
}

// Stats prints a summary of every logged request.
func (v *Viewer) Stats(ctx context.Context) error {
	records, err := v.repo.List(ctx, 0)
	if err != nil {
		return err
	}

	s := Summarize(records)
	fmt.Fprintf(v.out, "Total Requests: %d (%d succeeded, %d failed)\n", s.Total, s.Succeeded, s.Failed)
	if s.Total == 0 {
		fmt.Fprintln(v.out, "No requests logged yet.")
		return nil
	}
	if s.Succeeded > 0 {
		fmt.Fprintf(v.out, "Top confidence: mean %.2f%%, stddev %.2f%%\n", s.MeanConfidence*100, s.StdConfidence*100)
	}

	fmt.Fprintln(v.out, "\nTop predictions:")
	table := tablewriter.NewWriter(v.out)
	table.SetHeader([]string{"LABEL", "COUNT", "SHARE"})
	table.SetBorder(false)
	for _, lc := range s.TopLabels {
		share := float64(lc.Count) / float64(s.Total) * 100
		table.Append([]string{lc.Label, strconv.Itoa(lc.Count), fmt.Sprintf("%.1f%%", share)})
	}
	table.Render()
	return nil
}

// Suggest returns up to n known IDs closest to id by edit distance.
func Suggest(id string, known []string, n int) []string {
	type scored struct {
		id   string
		dist int
	}
	candidates := make([]scored, 0, len(known))
	for _, k := range known {
		candidates = append(candidates, scored{k, levenshtein.Distance(id, k)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	// Anything further away than half the ID length is noise
	limit := len(id)/2 + 1
	var out []string
	for _, c := range candidates {
		if len(out) == n || c.dist > limit {
			break
		}
		out = append(out, c.id)
	}
	return out
}
