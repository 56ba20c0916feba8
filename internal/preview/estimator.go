package preview

import "github.com/fpang/batch-compress/internal/filehandler"

// savingsRatio is the heuristic fraction of bytes saved per category.
var savingsRatio = map[filehandler.Category]float64{
	filehandler.CategoryImage: 0.30,
	filehandler.CategoryPDF:   0.40,
	filehandler.CategoryVideo: 0.15,
	filehandler.CategoryDoc:   0.20,
}

// defaultSavingsRatio applies to archives and generic files.
const defaultSavingsRatio = 0.25

// SavingsRatio returns the heuristic savings ratio for a category.
func SavingsRatio(c filehandler.Category) float64 {
	if r, ok := savingsRatio[c]; ok {
		return r
	}
	return defaultSavingsRatio
}

// EstimateSavings returns the advisory number of bytes compression might save
// across the batch. It is a heuristic, not a promise about the service's output.
func EstimateSavings(files []filehandler.CandidateFile) int64 {
	var total float64
	for _, f := range files {
		total += float64(f.Size) * SavingsRatio(f.Category())
	}
	return int64(total)
}
