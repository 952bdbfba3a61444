package ranking

import "github.com/kailas-cloud/vidrank/internal/domain/video"

// Page is one page of ranked videos.
type Page struct {
	Items            []video.Candidate
	Total            int
	TotalApproximate bool
	Page             int
	PageSize         int
	TotalPages       int
	Engine           Engine
}

// paginate slices the ordered outcome. Approximate totals are at least what
// has been paged through. Callers bound page so that (page-1)*pageSize fits an int.
func paginate(out outcome, page, pageSize int) Page {
	offset := max((page-1)*pageSize, 0)
	start := min(offset, len(out.items))
	end := min(start+pageSize, len(out.items))
	items := out.items[start:end]
	if items == nil {
		items = []video.Candidate{}
	}

	total := len(out.items)
	if out.approximate {
		total = max(out.hits, offset+len(items))
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total-1)/pageSize + 1
	}

	return Page{
		Items:            items,
		Total:            total,
		TotalApproximate: out.approximate,
		Page:             page,
		PageSize:         pageSize,
		TotalPages:       totalPages,
		Engine:           out.engine,
	}
}
