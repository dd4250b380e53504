// Package parsers extracts structured data from the snapshot's text
// artifacts: job definitions, failure logs, and troubleshooting histories.
package parsers

import "regexp"

// Job definition (.procs) patterns
var (
	procsFirmRe    = regexp.MustCompile(`(?m)^Firm:\s*(.+?)(?:\s{2,}|$)`)
	procsCIDRe     = regexp.MustCompile(`(?m)^CID\s*:\s*(\w+)`)
	procsAppTypeRe = regexp.MustCompile(`(?m)(?:Application Type|Production Type):\s*(.+?)(?:\s{2,}|$)`)
	procsJobIDRe   = regexp.MustCompile(`(?m)Job ID:\s*(\S+)`)
	procsLRRe      = regexp.MustCompile(`(?m)LR:\s*(\S+)`)

	procsShellScriptRe = regexp.MustCompile(`(?mi)__(?:Processing\s+)?Shell Script:\s*(/\S+)`)
	procsLogFileRe     = regexp.MustCompile(`(?mi)__Log File:\s*(/\S+)`)
	procsFileSetupRe   = regexp.MustCompile(`(?mi)__File Setup Before Processing:\s*(/\S+)`)

	procsPrintFilesRe    = regexp.MustCompile(`(?mi)Print files?:\s*(/\S+)`)
	procsInputLocationRe = regexp.MustCompile(`(?mi)File Location:\s*(/\S+)`)
	procsCrossRefRe      = regexp.MustCompile(`(?i)refer to\s+(/home/procs/\w+\.procs)`)

	absolutePathRe = regexp.MustCompile(`(/(?:home|d|z|download|ftpbu)/[^\s,;"'<>()]+)`)
)

// Log patterns
var (
	logTimestampRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}/\d{2}:\d{2}:\d{2}\.\d{3})`)

	// Formatter engine codes like PPCS8005I, PPDE1001E; AFPR codes from
	// AFP resources
	messageCodeRe = regexp.MustCompile(`((?:PP(?:CS|DE|ST|CO|AP|DG|TP|WM|FP|EM)|AFPR)\d{4}[IWEF])`)

	oraCodeRe = regexp.MustCompile(`(ORA-\d{5})`)

	// Source reference like [pcsdll/pcs.cpp,567]
	sourceRefRe = regexp.MustCompile(`\[([^,\]]+\.cpp),(\d+)\]`)

	docdefRefRe = regexp.MustCompile(`DOCDEF '(\w+)'`)

	errorKeywordsRe = regexp.MustCompile(`(?i)\b(ERROR|FAIL|failed|FAILED|exception|mismatch|missing|abort|aborted)\b`)

	// Perl/shell error location like "foo.pl line 266"
	scriptLineRefRe = regexp.MustCompile(`(?i)(\w+\.(?:pl|sh|py))\s+line\s+(\d+)`)

	prefixTokenRe = regexp.MustCompile(`\$PREFIX=(\w+)`)
	jidTokenRe    = regexp.MustCompile(`\$JID=(\w+)`)

	logScriptPathRe = regexp.MustCompile(`(/home/(?:master|insert|util)/[\w\-.]+\.(?:sh|pl|py|ins))`)

	docdefParamRe = regexp.MustCompile(`(?i)docdef=(\w+)`)
	ioPathRe      = regexp.MustCompile(`(?i)(?:input|output|profile)=(\S+)`)

	// Document definition tokens: 4-letter client id + 2-letter type + 2 digits
	docdefTokenRe = regexp.MustCompile(`\b([A-Z]{4}[A-Z]{2}\d{2})\b`)

	// The disk wrapper script reports this for any non-zero child exit
	wrapperNoiseRe = regexp.MustCompile(`(?i)ERROR:\s*Generator returns a non-zero value`)

	strongFailureRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)aborted`),
		regexp.MustCompile(`(?i)not generated`),
		regexp.MustCompile(`ORA-\d{5}`),
		regexp.MustCompile(`(?i)missing\s+(?:input|file|docdef)`),
		regexp.MustCompile(`(?i)Permission denied`),
		regexp.MustCompile(`(?i)No such file`),
		regexp.MustCompile(`(?i)cannot open`),
		regexp.MustCompile(`(?i)failed to open`),
		regexp.MustCompile(`[IWEF]\d{4}F\b`),
	}
)

// History patterns
var (
	historySessionStartRe = regexp.MustCompile(`^<(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}Z-[^>]+\.md)>$`)
	historySessionEndRe   = regexp.MustCompile(`^</(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}Z-[^>]+\.md)>$`)
	historyUserTurnRe     = regexp.MustCompile(`^_\*\*User\*\*_$`)
	historyAssistTurnRe   = regexp.MustCompile(`^_\*\*Assistant\*\*_$`)
)

// Error signatures worth keeping as case card signals
var errorSignatureRes = []*regexp.Regexp{
	regexp.MustCompile(`ORA-\d{5}`),
	regexp.MustCompile(`(?i)missing file_id`),
	regexp.MustCompile(`(?i)Permission denied`),
	regexp.MustCompile(`(?i)No such file`),
	regexp.MustCompile(`(?i)timeout`),
	regexp.MustCompile(`(?i)Total number of accounts do not match`),
	regexp.MustCompile(`(?i)Error line \d+ has`),
	regexp.MustCompile(`(?i)CSV file .+ is bad`),
	regexp.MustCompile(`PP[A-Z]{2}\d{4}[EF]`),
	regexp.MustCompile(`AFPR\d{4}[EF]`),
	regexp.MustCompile(`(?i)Failed in \w+`),
	regexp.MustCompile(`(?i)Error within program`),
}

var shellCommandRe = regexp.MustCompile(`(?m)^\s*(grep|cat|find|ls|cd|sqlplus|perl|bash|sh|wc|head|tail|awk|sed)\s+.+$`)

var filePathRe = regexp.MustCompile(`(/[a-zA-Z0-9_/\-.]+\.(?:pl|sh|procs|dfa|control|ins|csv|txt|sql|py))`)
