package types

// WindowArgs configures the embedding shell window
type WindowArgs struct {
	Title  string `json:"title"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Debug  bool   `json:"debug"`
}

// Stats describes the current shell state
type Stats struct {
	State            string `json:"state"`
	Document         string `json:"document,omitempty"`
	DerivedResources int    `json:"derived_resources"`
	Watcher          string `json:"watcher,omitempty"`
}
