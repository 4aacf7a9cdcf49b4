// fedistash/utils/utils.go
package utils

var BackupDir string

// BtoI converts a boolean to an integer (1 for true, 0 for false).
func BtoI(b bool) int {
	if b {
		return 1
	}
	return 0
}
