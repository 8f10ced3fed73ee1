package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BucketExport mirrors the derived statistics of one bucket in export
// files. CSV and JSON exports of a store can be re-parsed into the same
// values, which is what the round-trip tests rely on.
type BucketExport struct {
	Sent         int64   `json:"sent"`
	Received     int64   `json:"received"`
	AvgRTT       float64 `json:"avg_rtt"`
	SuccessCount int64   `json:"success_count"`
	FailCount    int64   `json:"fail_count"`
	PacketLoss   float64 `json:"packet_loss"`
}

func exportBucket(stats BucketStats) BucketExport {
	return BucketExport{
		Sent:         stats.Sent,
		Received:     stats.Received,
		AvgRTT:       stats.AvgRTT(),
		SuccessCount: stats.SuccessCount,
		FailCount:    stats.FailCount,
		PacketLoss:   stats.PacketLoss(),
	}
}

// NewSessionFolder creates the per-run output folder and its session
// header file, and returns the folder path.
func NewSessionFolder(baseDir string, start time.Time, targets []Target) (string, error) {
	folder := filepath.Join(baseDir, "session_"+start.Format("20060102_150405"))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("creating session folder: %w", err)
	}

	names := make([]string, 0, len(targets))
	for _, target := range targets {
		names = append(names, target.Name)
	}
	header := fmt.Sprintf("Session: %s\nHosts: %s\n", start.Format(TimeKeyLayout), strings.Join(names, ", "))
	if err := os.WriteFile(filepath.Join(folder, "session.txt"), []byte(header), 0o644); err != nil {
		return "", fmt.Errorf("writing session header: %w", err)
	}
	return folder, nil
}

// WriteText writes a fixed-width table of buckets sorted by time key. The
// Outage column applies the packet-loss threshold per bucket.
func WriteText(path, title string, data map[string]BucketStats, threshold float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating text export: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "%s:\n%s\n", title, strings.Repeat("=", 100))
	fmt.Fprintf(file, "%-20s %-12s %-12s %-18s %-12s %-12s %-10s\n",
		"Time", "Sent", "Received", "Avg RTT (ms)", "Success", "Failed", "Outage")
	fmt.Fprintln(file, strings.Repeat("-", 100))

	for _, key := range sortedKeys(data) {
		stats := data[key]
		outage := "No"
		if stats.PacketLoss() > threshold {
			outage = "Yes"
		}
		fmt.Fprintf(file, "%-20s %-12d %-12d %-18.2f %-12d %-12d %-10s\n",
			key, stats.Sent, stats.Received, stats.AvgRTT(), stats.SuccessCount, stats.FailCount, outage)
	}

	return nil
}

var csvHeader = []string{"Time", "Sent", "Received", "Avg RTT (ms)", "Success", "Failed", "Packet Loss %"}

// WriteCSV writes buckets as CSV rows sorted by time key.
func WriteCSV(path string, data map[string]BucketStats) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv export: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, key := range sortedKeys(data) {
		stats := data[key]
		record := []string{
			key,
			strconv.FormatInt(stats.Sent, 10),
			strconv.FormatInt(stats.Received, 10),
			fmt.Sprintf("%.2f", stats.AvgRTT()),
			strconv.FormatInt(stats.SuccessCount, 10),
			strconv.FormatInt(stats.FailCount, 10),
			fmt.Sprintf("%.2f", stats.PacketLoss()*100),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a CSV export back into per-key bucket statistics.
func ReadCSV(path string) (map[string]BucketExport, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv export: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv export: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv export is empty")
	}

	data := make(map[string]BucketExport, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != len(csvHeader) {
			return nil, fmt.Errorf("malformed csv record: %v", record)
		}
		sent, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing sent count: %w", err)
		}
		received, err := strconv.ParseInt(record[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing received count: %w", err)
		}
		avgRTT, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing avg rtt: %w", err)
		}
		success, err := strconv.ParseInt(record[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing success count: %w", err)
		}
		failed, err := strconv.ParseInt(record[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing fail count: %w", err)
		}
		lossPercent, err := strconv.ParseFloat(record[6], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing packet loss: %w", err)
		}
		data[record[0]] = BucketExport{
			Sent:         sent,
			Received:     received,
			AvgRTT:       avgRTT,
			SuccessCount: success,
			FailCount:    failed,
			PacketLoss:   lossPercent / 100,
		}
	}
	return data, nil
}

// WriteJSON writes buckets as a JSON object keyed by time key.
func WriteJSON(path string, data map[string]BucketStats) error {
	exported := make(map[string]BucketExport, len(data))
	for key, stats := range data {
		exported[key] = exportBucket(stats)
	}

	payload, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling json export: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("writing json export: %w", err)
	}
	return nil
}

// ReadJSON parses a JSON export back into per-key bucket statistics.
func ReadJSON(path string) (map[string]BucketExport, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading json export: %w", err)
	}
	var data map[string]BucketExport
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json export: %w", err)
	}
	return data, nil
}

// WriteOutageSummary writes the episode list, one line per episode.
func WriteOutageSummary(path string, episodes []OutageEpisode) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating outage summary: %w", err)
	}
	defer file.Close()

	if len(episodes) == 0 {
		fmt.Fprintln(file, "No outages detected.")
		return nil
	}

	fmt.Fprintf(file, "Outages: %d\n%s\n", len(episodes), strings.Repeat("=", 60))
	for i, episode := range episodes {
		fmt.Fprintf(file, "#%d %s: %s - %s (%ds, %.1f%% loss)\n",
			i+1, episode.Host, episode.Start, episode.End, episode.Duration, episode.LossPercent)
	}
	return nil
}
