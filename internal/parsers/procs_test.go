package parsers

import "testing"

const sampleProcs = `Firm: Western Community CU      Page 1
CID : WCCU
Application Type: Daily Letters
Job ID: dla
LR: L14

__Processing Shell Script: /home/master/wccu_dl_process.sh
__Log File: /d/wccu/dla/wccudla.log
__File Setup Before Processing: /home/insert/wccu_dl.ins

Print file: /d/wccu/dla/print/wccudla.afp
File Location: /d/wccu/dl/incoming

For archive setup refer to /home/procs/wccuarch.procs
Post step runs /home/util/wccu_post.pl with /home/master/wccu_dl.control
Docdef at /home/docdef/wccudl014.dfa
`

func TestParseProcs(t *testing.T) {
	data := ParseProcs(sampleProcs)

	if data.Firm != "Western Community CU" {
		t.Errorf("Firm = %q", data.Firm)
	}
	if data.CID != "wccu" {
		t.Errorf("CID = %q, want wccu (lowercased)", data.CID)
	}
	if data.AppType != "Daily Letters" {
		t.Errorf("AppType = %q", data.AppType)
	}
	if data.JobID != "dla" {
		t.Errorf("JobID = %q", data.JobID)
	}
	if data.LR != "L14" {
		t.Errorf("LR = %q", data.LR)
	}

	if data.ShellScript != "/home/master/wccu_dl_process.sh" {
		t.Errorf("ShellScript = %q", data.ShellScript)
	}
	if data.ShellScriptLine != 7 {
		t.Errorf("ShellScriptLine = %d, want 7", data.ShellScriptLine)
	}
	if data.LogFile != "/d/wccu/dla/wccudla.log" {
		t.Errorf("LogFile = %q", data.LogFile)
	}
	if data.FileSetup != "/home/insert/wccu_dl.ins" {
		t.Errorf("FileSetup = %q", data.FileSetup)
	}

	if len(data.PrintFiles) != 1 || data.PrintFiles[0] != "/d/wccu/dla/print/wccudla.afp" {
		t.Errorf("PrintFiles = %v", data.PrintFiles)
	}
	if data.InputLocation != "/d/wccu/dl/incoming" {
		t.Errorf("InputLocation = %q", data.InputLocation)
	}
	if len(data.CrossRefs) != 1 || data.CrossRefs[0] != "/home/procs/wccuarch.procs" {
		t.Errorf("CrossRefs = %v", data.CrossRefs)
	}
}

func TestParseProcsDefaults(t *testing.T) {
	data := ParseProcs("just some text")
	if data.Firm != "unknown" || data.CID != "unknown" || data.AppType != "unknown" {
		t.Errorf("missing fields should default to unknown, got %q/%q/%q",
			data.Firm, data.CID, data.AppType)
	}
}

func TestReferencedScripts(t *testing.T) {
	data := ParseProcs(sampleProcs)
	scripts := data.ReferencedScripts()

	var runs, calls int
	for _, s := range scripts {
		switch s.RelType {
		case "RUNS":
			runs++
			if s.Path != "/home/master/wccu_dl_process.sh" {
				t.Errorf("RUNS path = %q", s.Path)
			}
		case "CALLS":
			calls++
		}
	}
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
	// wccu_post.pl shows up as a CALLS reference
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestReferencedResources(t *testing.T) {
	data := ParseProcs(sampleProcs)
	resources := data.ReferencedResources()

	kinds := make(map[string]int)
	for _, r := range resources {
		kinds[r.Kind]++
	}
	if kinds["insert"] < 1 {
		t.Errorf("expected an insert resource, got %v", kinds)
	}
	if kinds["control"] != 1 {
		t.Errorf("expected one control resource, got %v", kinds)
	}
	if kinds["docdef"] != 1 {
		t.Errorf("expected one docdef resource, got %v", kinds)
	}
	if kinds["input"] != 1 {
		t.Errorf("expected one input resource, got %v", kinds)
	}
}

func TestProcsDataJSONRoundTrip(t *testing.T) {
	data := ParseProcs(sampleProcs)

	encoded, err := data.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := ProcsDataFromJSON(encoded)
	if err != nil {
		t.Fatalf("ProcsDataFromJSON: %v", err)
	}
	if decoded.CID != data.CID || decoded.ShellScript != data.ShellScript {
		t.Error("round trip lost fields")
	}
}
