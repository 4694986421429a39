package dto

import (
	"encoding/json"
	"testing"
)

func TestUpdateResultRequest_TotalMarksPresence(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantSet bool
		wantVal *float64
	}{
		{"缺省", `{"marks": 10}`, false, nil},
		{"显式 null", `{"total_marks": null}`, true, nil},
		{"数值", `{"total_marks": 50}`, true, func() *float64 { v := 50.0; return &v }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateResultRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("解析失败: %v", err)
			}
			if req.TotalMarks.Set != tt.wantSet {
				t.Errorf("Set 期望 %v，实际 %v", tt.wantSet, req.TotalMarks.Set)
			}
			switch {
			case tt.wantVal == nil && req.TotalMarks.Value != nil:
				t.Errorf("Value 期望 nil，实际 %v", *req.TotalMarks.Value)
			case tt.wantVal != nil && (req.TotalMarks.Value == nil || *req.TotalMarks.Value != *tt.wantVal):
				t.Errorf("Value 期望 %v，实际 %v", *tt.wantVal, req.TotalMarks.Value)
			}
		})
	}

	var req UpdateResultRequest
	if err := json.Unmarshal([]byte(`{"total_marks": "x"}`), &req); err == nil {
		t.Error("非数值满分应解析失败")
	}
}
