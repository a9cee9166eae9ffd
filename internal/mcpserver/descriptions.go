package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeAnalyze() string {
	return `Runs csanalyser's C# rules over source files and reports findings.

USE WHEN:
- Reviewing C# changes for SQL or command injection risks
- Checking for MD5 or SHA1 usage before a security review
- Looking for methods nothing calls before deleting code
- Analyzing a snippet that is not on disk (pass it in "sources")

INTERPRETING RESULTS:
- CSA001 warning: any SqlCommand text built with + (off by default)
- CSA002 error: SqlCommand text concatenated with a non-numeric value
- CSA003 error: Process.Start arguments concatenated with a non-numeric value
- CSA004 warning: a call mentioning MD5 or SHA1
- CSA005 note: a method with no call matching its owner, name and argument count.
  Liveness is judged across all analyzed files, so analyze the whole project
  or pass entry_points (e.g. Main) to avoid false positives.
- Integers, numeric literals and values declared with numeric types are safe;
  everything else in a concatenation is treated as untrusted.

FIELDS RETURNED:
- findings: rule, severity, message, file_name, line_number, column, fingerprint
- summary: total findings, counts by rule and file, files analyzed, cached and failed
- failures: files that could not be read or parsed and analyzers that failed`
}

func describeListRules() string {
	return `Lists every rule csanalyser knows, with its id and whether it runs by default.

USE WHEN:
- Choosing which rules to pass to analyze_csharp
- Explaining what a finding's rule id means

INTERPRETING RESULTS:
- name is what analyze_csharp's "rules" accepts; the id also works
- default rules run when "rules" is empty

FIELDS RETURNED:
- name, id, severity, default, description`
}
