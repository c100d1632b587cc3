package handlers

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type pagination struct {
	Offset int
	Limit  int
}

// parsePagination 页码从 1 开始，未指定或为 0 时取第一页
func parsePagination(page *uint, limit *uint) pagination {
	p := pagination{Limit: defaultPageLimit}

	if limit != nil && *limit > 0 {
		p.Limit = int(min(*limit, maxPageLimit))
	}
	if page != nil && *page > 1 {
		p.Offset = int(*page-1) * p.Limit
	}

	return p
}

func (p pagination) maxPage(count int64) int64 {
	pageMax := count / int64(p.Limit)
	if count%int64(p.Limit) != 0 {
		pageMax++
	}
	return pageMax
}
