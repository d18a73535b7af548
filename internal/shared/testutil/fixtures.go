package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// CSVHeader is the header row of every problem table.
const CSVHeader = "Difficulty,Title,Frequency,Acceptance Rate,Link,Topics"

// SampleTable is a small, well-formed problem table.
const SampleTable = CSVHeader + "\n" +
	`EASY,Two Sum,100.0,0.55,https://leetcode.com/problems/two-sum,"Array, Hash Table"` + "\n" +
	`MEDIUM,LRU Cache,87.5,0.44,https://leetcode.com/problems/lru-cache,"Hash Table, Linked List, Design"` + "\n" +
	`HARD,Median of Two Sorted Arrays,65.2,0.41,https://leetcode.com/problems/median-of-two-sorted-arrays,"Array, Binary Search"` + "\n"

// WriteCompany creates dir/company/<file> for each entry in tables.
func WriteCompany(t *testing.T, dir, company string, tables map[string]string) {
	t.Helper()

	companyDir := filepath.Join(dir, company)
	if err := os.MkdirAll(companyDir, 0755); err != nil {
		t.Fatalf("create company dir: %v", err)
	}
	for name, content := range tables {
		if err := os.WriteFile(filepath.Join(companyDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// WriteCompanyIndex writes dir/companies.json listing companies.
func WriteCompanyIndex(t *testing.T, dir string, companies []string) {
	t.Helper()

	data, err := json.Marshal(companies)
	if err != nil {
		t.Fatalf("marshal companies: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "companies.json"), data, 0644); err != nil {
		t.Fatalf("write companies.json: %v", err)
	}
}
