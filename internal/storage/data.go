package storage

// PageRecord is one crawl result: a visited page and the same-domain
// links discovered on it.
type PageRecord struct {
	pageURL string
	links   []string
}

func NewPageRecord(pageURL string, links []string) PageRecord {
	return PageRecord{
		pageURL: pageURL,
		links:   links,
	}
}

func (p *PageRecord) PageURL() string {
	return p.pageURL
}

func (p *PageRecord) Links() []string {
	return p.links
}
