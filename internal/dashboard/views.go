package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/miradorstack/posture-dashboard/internal/models"
	"github.com/miradorstack/posture-dashboard/internal/utils"
)

func decode(payload json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	return dec.Decode(v)
}

func decodeRows(payload json.RawMessage) ([]map[string]any, error) {
	var rows []map[string]any
	if err := decode(payload, &rows); err != nil {
		return nil, fmt.Errorf("expected a JSON array of objects: %w", err)
	}
	return rows, nil
}

// KPIView derives the metric field texts. Fields absent from the payload are omitted.
func KPIView(payload json.RawMessage, loc *time.Location) (map[string]string, error) {
	var raw map[string]any
	if err := decode(payload, &raw); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	if raw == nil {
		return nil, errors.New("expected a JSON object")
	}

	out := make(map[string]string, len(models.MetricRegions))
	percent := func(name, key string) {
		if v, ok := raw[key]; ok {
			out[name] = fmt.Sprintf("%.0f%%", models.Number(v)*100)
		}
	}
	hours := func(name, key string) {
		if v, ok := raw[key]; ok {
			out[name] = fmt.Sprintf("%.1fh", models.Number(v))
		}
	}
	plain := func(name, key string) {
		if v, ok := raw[key]; ok {
			out[name] = models.DisplayText(v)
		}
	}

	percent(models.MetricRisk, "overall_risk")
	plain(models.MetricFindings, "open_findings")
	plain(models.MetricCritical, "critical_open")
	percent(models.MetricSLA, "patch_sla_compliance")
	hours(models.MetricMTTD, "mean_time_to_detect_hours")
	hours(models.MetricMTTR, "mean_time_to_respond_hours")
	if v, ok := raw["last_updated"]; ok {
		text := models.DisplayText(v)
		if ts, err := utils.ParseTimestamp(text); err == nil {
			text = utils.FormatDisplay(ts, loc)
		}
		out[models.MetricUpdated] = text
	}
	return out, nil
}

// IncidentView derives the daily incident series and its 30-day legend.
func IncidentView(payload json.RawMessage) ([]models.Sample, string, error) {
	rows, err := decodeRows(payload)
	if err != nil {
		return nil, "", err
	}
	points := make([]models.Sample, len(rows))
	for i, row := range rows {
		points[i] = models.Sample{
			Label:     models.DisplayText(row["date"]),
			Value:     models.Number(row["incidents"]),
			Secondary: models.Number(row["critical"]),
		}
	}
	return points, IncidentLegend(points), nil
}

// IncidentLegend totals the final 30 samples.
func IncidentLegend(points []models.Sample) string {
	window := points
	if len(window) > incidentsSpan {
		window = window[len(window)-incidentsSpan:]
	}
	var total, critical float64
	for _, p := range window {
		total += p.Value
		critical += p.Secondary
	}
	return fmt.Sprintf("Last 30 days total: %s • Critical last 30d: %s", formatCount(total), formatCount(critical))
}

// ComplianceView averages score per framework, in first-seen order, as a rounded percentage.
func ComplianceView(payload json.RawMessage) (Categories, error) {
	rows, err := decodeRows(payload)
	if err != nil {
		return Categories{}, err
	}
	var order []string
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, row := range rows {
		fw := models.DisplayText(row["framework"])
		if _, seen := counts[fw]; !seen {
			order = append(order, fw)
		}
		sums[fw] += models.Number(row["score"])
		counts[fw]++
	}
	out := Categories{Labels: order, Values: make([]float64, len(order))}
	for i, fw := range order {
		out.Values[i] = math.Round(sums[fw] / float64(counts[fw]) * 100)
	}
	return out, nil
}

// PatchView keeps the last six months of coverage as rounded percentages.
func PatchView(payload json.RawMessage) (Categories, error) {
	rows, err := decodeRows(payload)
	if err != nil {
		return Categories{}, err
	}
	if len(rows) > patchMonths {
		rows = rows[len(rows)-patchMonths:]
	}
	out := Categories{Labels: make([]string, len(rows)), Values: make([]float64, len(rows))}
	for i, row := range rows {
		out.Labels[i] = models.DisplayText(row["month"])
		out.Values[i] = math.Round(models.Number(row["coverage"]) * 100)
	}
	return out, nil
}

// TableView normalizes the first limit rows through fields; limit <= 0 keeps all.
func TableView(payload json.RawMessage, fields models.FieldMap, limit int) ([]models.RowRecord, error) {
	rows, err := decodeRows(payload)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return fields.NormalizeAll(rows), nil
}

// ControlsView flattens {framework: {control: value}} into rows, keeping document order.
func ControlsView(payload json.RawMessage) ([]models.RowRecord, error) {
	frameworks, err := orderedObject(payload)
	if err != nil {
		return nil, err
	}
	var out []models.RowRecord
	for _, fw := range frameworks {
		controls, err := orderedObject(fw.value)
		if err != nil {
			return nil, fmt.Errorf("framework %q: %w", fw.key, err)
		}
		for _, c := range controls {
			var v any
			if err := decode(c.value, &v); err != nil {
				return nil, fmt.Errorf("control %q: %w", c.key, err)
			}
			out = append(out, models.RowRecord{
				{Column: "Framework", Value: fw.key},
				{Column: "Control", Value: c.key},
				{Column: "Value", Value: v},
			})
		}
	}
	return out, nil
}

type member struct {
	key   string
	value json.RawMessage
}

func orderedObject(payload json.RawMessage) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a JSON object")
	}
	var out []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("expected object key")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		out = append(out, member{key: key, value: value})
	}
	return out, nil
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
