// Package export flattens analytics and withdrawal results into ordered key/value documents.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vanshika/comptree/backend/internal/domain"
)

// FullPrecision disables rounding of float values.
const FullPrecision = -1

// Options controls value rendering.
type Options struct {
	// Precision is the number of decimals floats are rounded to, or FullPrecision.
	Precision int
}

// DefaultOptions renders currency with two decimals.
func DefaultOptions() Options {
	return Options{Precision: 2}
}

// Field is one key/value pair.
type Field struct {
	Key   string
	Value any
}

// Document is an ordered, flat key/value dump.
type Document struct {
	Fields []Field
}

// Add appends a field.
func (d *Document) Add(key string, value any) {
	d.Fields = append(d.Fields, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (d Document) Get(key string) (any, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Summary dumps an analytics summary field by field.
func Summary(s domain.AnalyticsSummary) Document {
	var d Document
	d.Add("totalMembers", s.TotalMembers)
	d.Add("activeMembers", s.ActiveMembers)
	d.Add("totalVolume", s.TotalVolume)
	d.Add("totalEarnings", s.TotalEarnings)

	addRewards(&d, "rewardDistribution", s.RewardDistribution)

	pm := s.PerformanceMetrics
	d.Add("performanceMetrics.averageVolume", pm.AverageVolume)
	d.Add("performanceMetrics.activityRate", pm.ActivityRate)
	d.Add("performanceMetrics.earningsEfficiency", pm.EarningsEfficiency)
	d.Add("performanceMetrics.communityDepth", pm.CommunityDepth)
	d.Add("performanceMetrics.communityWidth", pm.CommunityWidth)
	d.Add("performanceMetrics.leadershipQualified", pm.LeadershipQualified)
	d.Add("performanceMetrics.cappedMembers", pm.CappedMembers)

	for _, l := range s.LevelBreakdown {
		prefix := "levelBreakdown." + strconv.Itoa(l.Level)
		d.Add(prefix+".count", l.Count)
		d.Add(prefix+".volume", l.Volume)
		d.Add(prefix+".earnings", l.Earnings)
	}
	for _, t := range s.TierBreakdown {
		prefix := "tierBreakdown." + t.Tier
		d.Add(prefix+".count", t.Count)
		d.Add(prefix+".volume", t.Volume)
	}
	d.Add("warnings", strings.Join(s.Warnings, ";"))
	return d
}

// Withdrawal dumps a withdrawal breakdown field by field.
func Withdrawal(b domain.WithdrawalBreakdown) Document {
	var d Document
	d.Add("totalAmount", b.TotalAmount)
	d.Add("withdrawAmount", b.WithdrawAmount)
	d.Add("adminFee", b.AdminFee)
	d.Add("userReceives", b.UserReceives)
	d.Add("reinvestAmount", b.ReinvestAmount)
	d.Add("compoundBonus", b.CompoundBonus)
	d.Add("totalReinvest", b.TotalReinvest)
	d.Add("effectiveFeeRate", b.EffectiveFeeRate)
	d.Add("splitLabel", b.SplitLabel)
	d.Add("tierName", b.TierName)
	d.Add("autoCompound", b.AutoCompound)
	return d
}

func addRewards(d *Document, prefix string, r domain.RewardBreakdown) {
	d.Add(prefix+".directBonus", r.DirectBonus)
	d.Add(prefix+".levelRewards", r.LevelRewards)
	d.Add(prefix+".globalRewards", r.GlobalRewards)
	d.Add(prefix+".leadershipRewards", r.LeadershipRewards)
	d.Add(prefix+".growthPool", r.GrowthPool)
}

// WriteCSV writes a key,value header followed by one row per field.
func WriteCSV(w io.Writer, d Document, opts Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"key", "value"}); err != nil {
		return err
	}
	for _, f := range d.Fields {
		if err := cw.Write([]string{f.Key, formatValue(f.Value, opts)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the document as a single JSON object, keys in document order.
func WriteJSON(w io.Writer, d Document, opts Options) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')

		switch v := f.Value.(type) {
		case float64:
			buf.WriteString(formatFloat(v, opts))
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", f.Key, err)
			}
			buf.Write(raw)
		}
	}
	buf.WriteString("}\n")
	_, err := w.Write(buf.Bytes())
	return err
}

func formatValue(v any, opts Options) string {
	switch val := v.(type) {
	case float64:
		return formatFloat(val, opts)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func formatFloat(v float64, opts Options) string {
	if opts.Precision < 0 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(domain.RoundCurrency(v, opts.Precision), 'f', opts.Precision, 64)
}
