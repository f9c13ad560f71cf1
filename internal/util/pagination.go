package util

// Normalize clamps page to 1-based and size to 1..100, defaulting to 10.
func Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 10
	}
	return page, size
}

// Calculate returns the row offset and limit for a page.
func Calculate(page, size int) (from, limit int) {
	page, size = Normalize(page, size)
	from = (page - 1) * size
	return from, size
}
