package invite

// LinksResponse lists the caller's shareable deep links
type LinksResponse struct {
	Links []string `json:"links"`
}
