package report

import (
	"strings"

	"github.com/Microsoft/hvctl/pkg/psparse"
)

// DriveTypeLocalDisk is the Win32_LogicalDisk DriveType of a local fixed disk.
const DriveTypeLocalDisk = "3"

var diskHeader = []string{"caption", "drivetype", "freespace", "size"}

// DiskSpace is the free and total size in bytes of one partition, kept as the
// literal strings from the report.
type DiskSpace struct {
	Free  string `json:"free"`
	Total string `json:"total"`
}

// DiskFreeSpace parses the `Caption DriveType FreeSpace Size` table and
// returns the local fixed disks keyed by their root path (`C:\`).
func DiskFreeSpace(text string) (map[string]DiskSpace, error) {
	disks := make(map[string]DiskSpace)
	header := false
	for _, line := range psparse.Lines(text) {
		fields := strings.Fields(line)
		if !header {
			header = isDiskHeader(fields)
			continue
		}
		if len(fields) != len(diskHeader) || fields[1] != DriveTypeLocalDisk {
			continue
		}
		disks[fields[0]+`\`] = DiskSpace{Free: fields[2], Total: fields[3]}
	}
	if len(disks) == 0 {
		return nil, notFound("expected partition", text)
	}
	return disks, nil
}

func isDiskHeader(fields []string) bool {
	if len(fields) != len(diskHeader) {
		return false
	}
	for i, f := range fields {
		if strings.ToLower(f) != diskHeader[i] {
			return false
		}
	}
	return true
}
