package store

import "fmt"

func categorySpikeDescription(category string, count, percent int) string {
	return fmt.Sprintf("%s accounts for %d of the last hour's errors (%d%%), well above its usual share.", category, count, percent)
}
