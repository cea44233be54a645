package procdir

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// DecodeConsoleOutput converts tasklist output to a string. Consoles running a
// legacy code page emit GBK rather than UTF-8; invalid UTF-8 is decoded as GBK.
func DecodeConsoleOutput(out []byte) string {
	if utf8.Valid(out) {
		return string(out)
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(out)
	if err != nil {
		return string(out)
	}
	return string(decoded)
}

// ParseTasklist extracts the PIDs of image from `tasklist /FO CSV /NH` output.
// Rows look like:
//
//	"xnode.exe","33540","Console","1","112,400 K"
//
// Informational lines such as "INFO: No tasks are running which match the
// specified criteria." are not CSV rows and yield no PIDs.
func ParseTasklist(output, image string) ([]int, error) {
	var pids []int
	for lineNo, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, `"`) {
			continue
		}
		reader := csv.NewReader(strings.NewReader(line))
		reader.FieldsPerRecord = -1
		record, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("tasklist line %d: %w", lineNo+1, err)
		}
		if len(record) < 2 || record[0] != image {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil || pid <= 0 {
			return nil, fmt.Errorf("tasklist line %d: invalid pid %q", lineNo+1, record[1])
		}
		pids = append(pids, pid)
	}
	return pids, nil
}
