package simulator

import "github.com/user/secmon/pkg/finding"

// Sample is a named, hard-coded finding used for local runs.
type Sample struct {
	Type    string
	Finding finding.Finding
}

var samples = []Sample{
	{
		Type: "public_bucket",
		Finding: finding.Finding{
			Name:         "organizations/123456789/sources/5678/findings/finding-uuid-1234-5678-abcd",
			Parent:       "organizations/123456789/sources/5678",
			ResourceName: "//storage.googleapis.com/projects/test-project/buckets/vulnerable-bucket",
			State:        "ACTIVE",
			Category:     "PUBLIC_BUCKET_ACL",
			ExternalURI:  "https://console.cloud.google.com/storage/browser/vulnerable-bucket",
			SourceProperties: map[string]interface{}{
				"ReactivationCount":     0,
				"ExceptionInstructions": "Add the security mark \"allow_public_bucket_acl\" to the asset with a value of \"true\" to prevent this finding from being activated again.",
				"SeverityLevel":         "High",
				"Recommendation":        "To make objects accessible through IAM only, ensure none of your objects are accessible globally. Go to the permissions tab and select the bucket, then select EDIT PERMISSIONS and remove any values with the entity User and name \"allUsers\" or \"allAuthenticatedUsers\".",
				"ProjectId":             "test-project",
				"AssetCreationTime":     "2025-01-15T10:12:30.000Z",
				"ScanRunId":             "2025-03-27T10:23:30.00Z",
				"Finding Class":         "MISCONFIGURATION",
				"Explanation":           "This bucket's Access Control List (ACL) configuration grants global access to its resources.",
			},
			SecurityMarks: map[string]interface{}{},
			EventTime:     "2025-03-27T14:23:30Z",
			CreateTime:    "2025-03-27T14:23:30Z",
			Severity:      finding.SeverityHigh,
			Description:   "Storage bucket vulnerable-bucket is globally accessible to the public",
		},
	},
	{
		Type: "sql_injection",
		Finding: finding.Finding{
			Name:         "organizations/123456789/sources/5678/findings/finding-uuid-5678-1234-efgh",
			Parent:       "organizations/123456789/sources/5678",
			ResourceName: "//compute.googleapis.com/projects/test-project/zones/us-central1-a/instances/web-server-01",
			State:        "ACTIVE",
			Category:     "APPLICATION_SQL_INJECTION",
			ExternalURI:  "https://console.cloud.google.com/compute/instancesDetail/zones/us-central1-a/instances/web-server-01",
			SourceProperties: map[string]interface{}{
				"ReactivationCount": 2,
				"SeverityLevel":     "Critical",
				"Recommendation":    "Update your application to use parameterized queries or prepared statements. Implement proper input validation and sanitization.",
				"ProjectId":         "test-project",
				"AttackVector":      "Web Application",
				"ScanRunId":         "2025-03-27T09:15:30.00Z",
				"Finding Class":     "VULNERABILITY",
				"Explanation":       "Web application is vulnerable to SQL injection attacks through the search parameter.",
			},
			SecurityMarks: map[string]interface{}{},
			EventTime:     "2025-03-27T13:15:30Z",
			CreateTime:    "2025-03-27T13:15:30Z",
			Severity:      finding.SeverityCritical,
			Description:   "SQL injection vulnerability detected in web application on web-server-01",
		},
	},
	{
		Type: "weak_credentials",
		Finding: finding.Finding{
			Name:         "organizations/123456789/sources/5678/findings/finding-uuid-9012-3456-ijkl",
			Parent:       "organizations/123456789/sources/5678",
			ResourceName: "//iam.googleapis.com/projects/test-project/serviceAccounts/test-sa@test-project.iam.gserviceaccount.com",
			State:        "ACTIVE",
			Category:     "WEAK_CREDENTIALS",
			ExternalURI:  "https://console.cloud.google.com/iam-admin/serviceaccounts/details/test-sa@test-project.iam.gserviceaccount.com",
			SourceProperties: map[string]interface{}{
				"ReactivationCount": 0,
				"SeverityLevel":     "High",
				"Recommendation":    "Rotate the service account key immediately and implement a key rotation policy.",
				"ProjectId":         "test-project",
				"KeyAge":            "365",
				"ScanRunId":         "2025-03-27T08:45:30.00Z",
				"Finding Class":     "MISCONFIGURATION",
				"Explanation":       "Service account key has not been rotated in over 365 days.",
			},
			SecurityMarks: map[string]interface{}{},
			EventTime:     "2025-03-27T12:45:30Z",
			CreateTime:    "2025-03-27T12:45:30Z",
			Severity:      finding.SeverityHigh,
			Description:   "Service account key for test-sa@test-project.iam.gserviceaccount.com has not been rotated in over a year",
		},
	},
}

// Samples returns the built-in findings in menu order.
func Samples() []Sample {
	out := make([]Sample, len(samples))
	copy(out, samples)
	return out
}

// Types returns the sample names in menu order.
func Types() []string {
	types := make([]string, len(samples))
	for i, s := range samples {
		types[i] = s.Type
	}
	return types
}

// Lookup returns the sample finding with the given type.
func Lookup(findingType string) (finding.Finding, bool) {
	for _, s := range samples {
		if s.Type == findingType {
			return s.Finding, true
		}
	}
	return finding.Finding{}, false
}
