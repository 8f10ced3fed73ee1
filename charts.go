package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderCharts writes one RTT chart per target plus a combined packet
// loss chart into the session folder. Charts are built from the minute
// buckets so long sessions stay readable. Rendering needs at least two
// data points per series, targets with fewer are skipped.
func RenderCharts(folder string, views []targetView) error {
	if err := renderRTTCharts(folder, views); err != nil {
		return err
	}
	return renderLossChart(folder, views)
}

func renderRTTCharts(folder string, views []targetView) error {
	for _, view := range views {
		timestamps, values := minuteSeries(view.minute, func(stats BucketStats) float64 {
			return stats.AvgRTT()
		})
		if len(values) < 2 {
			continue
		}

		graph := chart.Chart{
			Title: fmt.Sprintf("Round-trip time - %s", view.target.Name),
			TitleStyle: chart.Style{
				FontSize: 16,
			},
			Background: chart.Style{
				Padding: chart.Box{
					Top:    20,
					Left:   20,
					Right:  20,
					Bottom: 20,
				},
			},
			Width:  1200,
			Height: 400,
			XAxis: chart.XAxis{
				Name: "Time",
				Style: chart.Style{
					StrokeColor: drawing.ColorBlack,
					FontSize:    10,
				},
				ValueFormatter: chart.TimeMinuteValueFormatter,
			},
			YAxis: chart.YAxis{
				Name: "RTT (ms)",
				Style: chart.Style{
					StrokeColor: drawing.ColorBlack,
					FontSize:    10,
				},
				GridMajorStyle: chart.Style{
					StrokeColor: drawing.Color{R: 200, G: 200, B: 200, A: 255},
					StrokeWidth: 1.0,
				},
			},
			Series: []chart.Series{
				chart.TimeSeries{
					Name: view.target.Name,
					Style: chart.Style{
						StrokeColor: chart.GetDefaultColor(0),
						StrokeWidth: 2,
					},
					XValues: timestamps,
					YValues: values,
				},
			},
		}

		if len(values) > 10 {
			ts := graph.Series[0].(chart.TimeSeries)
			graph.Series = append(graph.Series, chart.SMASeries{
				Name: "Moving Avg",
				Style: chart.Style{
					StrokeColor:     chart.GetDefaultColor(1),
					StrokeWidth:     2,
					StrokeDashArray: []float64{5, 5},
				},
				InnerSeries: ts,
				Period:      10,
			})
		}

		filename := filepath.Join(folder, fmt.Sprintf("rtt_%s.png", view.target.FolderName()))
		if err := renderPNG(filename, &graph); err != nil {
			return err
		}
	}
	return nil
}

func renderLossChart(folder string, views []targetView) error {
	var allSeries []chart.Series
	colorIndex := 0

	for _, view := range views {
		timestamps, values := minuteSeries(view.minute, func(stats BucketStats) float64 {
			return stats.PacketLoss() * 100
		})
		if len(values) < 2 {
			continue
		}
		allSeries = append(allSeries, chart.TimeSeries{
			Name: view.target.Name,
			Style: chart.Style{
				StrokeColor: chart.GetDefaultColor(colorIndex),
				StrokeWidth: 2,
			},
			XValues: timestamps,
			YValues: values,
		})
		colorIndex++
	}
	if len(allSeries) == 0 {
		return nil
	}

	graph := chart.Chart{
		Title: "Packet loss (per minute)",
		TitleStyle: chart.Style{
			FontSize: 16,
		},
		Background: chart.Style{
			Padding: chart.Box{
				Top:    20,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:  1200,
		Height: 400,
		XAxis: chart.XAxis{
			Name: "Time",
			Style: chart.Style{
				StrokeColor: drawing.ColorBlack,
				FontSize:    10,
			},
			ValueFormatter: chart.TimeMinuteValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Loss %",
			Style: chart.Style{
				StrokeColor: drawing.ColorBlack,
				FontSize:    10,
			},
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: 100,
			},
			GridMajorStyle: chart.Style{
				StrokeColor: drawing.Color{R: 200, G: 200, B: 200, A: 255},
				StrokeWidth: 1.0,
			},
		},
		Series: allSeries,
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	return renderPNG(filepath.Join(folder, "packet_loss.png"), &graph)
}

func minuteSeries(minute map[string]BucketStats, value func(BucketStats) float64) ([]time.Time, []float64) {
	keys := sortedKeys(minute)
	timestamps := make([]time.Time, 0, len(keys))
	values := make([]float64, 0, len(keys))
	for _, key := range keys {
		timestamp, err := time.Parse(TimeKeyLayout, key)
		if err != nil {
			continue
		}
		timestamps = append(timestamps, timestamp)
		values = append(values, value(minute[key]))
	}
	return timestamps, values
}

func renderPNG(filename string, graph *chart.Chart) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	defer file.Close()

	if err := graph.Render(chart.PNG, file); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}
