package synthreport

import (
	"fmt"
	"strings"
)

// Render produces the on-disk crash-report document for r. The layout
// mirrors the sectioned text format diagnostic tooling expects: header
// metadata, the crashed thread's backtrace, then the binary image
// table.
func (r *Report) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Process:               %s [%d]\n", r.ProcessName, r.ProcessID)
	fmt.Fprintf(&b, "Path:                  %s\n", r.processPath())
	fmt.Fprintf(&b, "OS Version:            %s (%s)\n", r.OSVersion, r.OSBuild)
	fmt.Fprintf(&b, "Date/Time:             %s\n", r.TimestampUTC.Format("2006-01-02 15:04:05.000 -0700"))
	if r.Uptime > 0 {
		fmt.Fprintf(&b, "Time Awake Since Boot: %d seconds\n", int64(r.Uptime.Seconds()))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Exception Type:        %s\n", r.ExceptionKind)
	fmt.Fprintf(&b, "Exception Codes:       KERN_INVALID_ADDRESS at %s\n", r.CrashAddress)
	b.WriteString("\n")
	b.WriteString("Thread 0 Crashed:\n")
	for _, f := range r.StackFrames {
		fmt.Fprintf(&b, "%-3d %-28s %s %s + %d\n",
			f.Index, f.ImageName, f.Address, f.SymbolName, f.SymbolOffset)
	}
	b.WriteString("\n")
	b.WriteString("Binary Images:\n")
	for _, img := range r.BinaryImages {
		fmt.Fprintf(&b, "    %s - %s %s <%s> %s\n",
			img.LoadStart, img.LoadEnd, img.ImageName, img.UUID, img.Path)
	}
	return b.String()
}

// processPath returns a plausible filesystem path for the process.
func (r *Report) processPath() string {
	for _, img := range imageCatalog {
		if img.name == r.ProcessName {
			return img.path
		}
	}
	return "/usr/libexec/" + r.ProcessName
}

// Filename returns a unique-enough document name for the report.
func (r *Report) Filename() string {
	return fmt.Sprintf("%s_%s_%d.crash",
		r.ProcessName, r.TimestampUTC.Format("2006-01-02-150405"), r.ProcessID)
}
