package models

// Series holds the decoded chart series for one chart.
type Series struct {
	Labels   []string
	Values   []float64
	Sanction []float64
	Counts   []float64
}

// ChartView is the JSON view of a chart.
type ChartView struct {
	Name            string    `json:"name"`
	Labels          []string  `json:"labels"`
	Data            []float64 `json:"data"`
	Sanction        []float64 `json:"sanction,omitempty"`
	Counts          []float64 `json:"counts,omitempty"`
	BackgroundColor []string  `json:"background_color"`
	Revision        int       `json:"revision"`
}
