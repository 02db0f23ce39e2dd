package entity

// Site describes one configured MediaWiki instance to harvest.
type Site struct {
	Language string
	Key      string
	APIURL   string
	BaseURL  string
	Quota    int // new quotes to insert per run
	PageSize int
	Priority int
}
