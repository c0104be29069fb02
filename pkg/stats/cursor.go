package stats

// pageCursor is the persisted position of the backward page walk over the
// scan API transaction listing. page is the last page successfully
// processed, pages is the listing's page count as of that sync.
type pageCursor struct {
	page  int64
	pages int64
}

// nextPage computes the page to fetch this cycle given the stored cursor
// and the listing's current page count. The walk starts at the newest page
// and moves toward page 1; when the listing grows, the cursor shifts
// forward by the same amount so the walk stays anchored on the pages it has
// not yet covered. A return value <= 0 means the walk has reached the
// front of the listing and there is nothing to fetch.
func nextPage(cur *pageCursor, pageCount int64) int64 {
	if pageCount <= 0 {
		return 0
	}

	if cur == nil {
		return pageCount
	}

	page := cur.page
	if pageCount > cur.pages {
		page += pageCount - cur.pages
	}

	// The listing can shrink when the upstream prunes old entries.
	if page > pageCount {
		page = pageCount
	}

	return page - 1
}
