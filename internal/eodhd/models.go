package eodhd

import "time"

// NewsItem represents a single news article.
type NewsItem struct {
	Date      time.Time      `json:"-"`
	DateStr   string         `json:"date"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Link      string         `json:"link"`
	Symbols   []string       `json:"symbols"`
	Tags      []string       `json:"tags"`
	Sentiment *NewsSentiment `json:"sentiment,omitempty"`
}

// NewsSentiment represents sentiment analysis data for news.
type NewsSentiment struct {
	Polarity float64 `json:"polarity"`
	Neg      float64 `json:"neg"`
	Neu      float64 `json:"neu"`
	Pos      float64 `json:"pos"`
}

// NewsResponse is a slice of NewsItem.
type NewsResponse []NewsItem

// FundamentalsResponse is the subset of the fundamentals payload used for
// reference metadata. Other sections are ignored when decoding.
type FundamentalsResponse struct {
	General *GeneralInfo `json:"General"`
}

// GeneralInfo contains general company information.
type GeneralInfo struct {
	Code           string `json:"Code"`
	Type           string `json:"Type"`
	Name           string `json:"Name"`
	Exchange       string `json:"Exchange"`
	CountryISO     string `json:"CountryISO"`
	Sector         string `json:"Sector"`
	Industry       string `json:"Industry"`
	GicSector      string `json:"GicSector"`
	GicGroup       string `json:"GicGroup"`
	GicIndustry    string `json:"GicIndustry"`
	GicSubIndustry string `json:"GicSubIndustry"`
	Description    string `json:"Description"`
	UpdatedAt      string `json:"UpdatedAt"`
}
