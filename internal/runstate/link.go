package runstate

import "net/url"

// dashboardLink appends the event and span identifiers to the base
// dashboard URL. An unparsable base is returned as is.
func dashboardLink(base, eventID, spanID string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if eventID != "" {
		q.Set("eid", eventID)
	}
	if spanID != "" {
		q.Set("s_eid", spanID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
