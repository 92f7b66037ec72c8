package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Credentials are the username/password pair sent to /api/login.
type Credentials struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Question is one question/answer pair of a company test. The candidate
// views of the service omit CorrectAnswer.
type Question struct {
	Question      string `yaml:"question" json:"question"`
	CorrectAnswer string `yaml:"correctAnswer" json:"correctAnswer,omitempty"`
}

// Assignment is the payload of POST /api/recruiter/assign-company-test.
type Assignment struct {
	Candidate   string     `yaml:"candidate" json:"candidate"`
	CompanyName string     `yaml:"companyName" json:"companyName"`
	TestType    string     `yaml:"testType" json:"testType"`
	Duration    int        `yaml:"duration" json:"duration"`
	Questions   []Question `yaml:"questions" json:"questions"`
}

// Answer is one submitted answer, addressed by question position.
type Answer struct {
	QuestionIndex int    `yaml:"questionIndex" json:"questionIndex"`
	Answer        string `yaml:"answer" json:"answer"`
}

// CompanyTest is an assigned test as returned by the candidate endpoints.
type CompanyTest struct {
	ID          string     `json:"id,omitempty"`
	CompanyName string     `json:"companyName"`
	TestType    string     `json:"testType"`
	Duration    int        `json:"duration,omitempty"`
	Status      string     `json:"status,omitempty"`
	Questions   []Question `json:"questions"`
}

// TestResult is one entry of the recruiter results listing.
type TestResult struct {
	ID          string   `json:"id,omitempty"`
	CompanyName string   `json:"companyName"`
	TestType    string   `json:"testType"`
	Status      string   `json:"status,omitempty"`
	Score       *float64 `json:"score,omitempty"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type,omitempty"`
	Role        string          `json:"role,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// AssignResponse is the body of a successful assignment.
type AssignResponse struct {
	TestID  string          `json:"test_id"`
	Message string          `json:"message,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// ListResponse is the body of GET /api/candidate/company-tests.
type ListResponse struct {
	Tests []CompanyTest   `json:"tests"`
	Raw   json.RawMessage `json:"-"`
}

// DetailResponse is the body of GET /api/candidate/company-tests/{id}.
type DetailResponse struct {
	Test *CompanyTest    `json:"test"`
	Raw  json.RawMessage `json:"-"`
}

// SubmitResponse is the body of POST /api/candidate/submit-company-test/{id}.
type SubmitResponse struct {
	Success *bool           `json:"success"`
	Message string          `json:"message,omitempty"`
	Score   *float64        `json:"score,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// ResultsResponse is the body of GET /api/recruiter/company-test-results/{candidate}.
type ResultsResponse struct {
	Tests []TestResult    `json:"tests"`
	Raw   json.RawMessage `json:"-"`
}

func (r *LoginResponse) validate() error {
	if r.AccessToken == "" {
		return errors.New("access_token is missing or empty")
	}
	return nil
}

func (r *AssignResponse) validate() error {
	if r.TestID == "" {
		return errors.New("test_id is missing or empty")
	}
	return nil
}

func (r *ListResponse) validate() error {
	if r.Tests == nil {
		return errors.New("tests is missing")
	}
	for i := range r.Tests {
		if err := r.Tests[i].validate(); err != nil {
			return fmt.Errorf("tests[%d]: %w", i, err)
		}
	}
	return nil
}

func (r *DetailResponse) validate() error {
	if r.Test == nil {
		return errors.New("test is missing")
	}
	if err := r.Test.validate(); err != nil {
		return fmt.Errorf("test: %w", err)
	}
	return nil
}

func (r *SubmitResponse) validate() error {
	if r.Success != nil && !*r.Success {
		if r.Message != "" {
			return fmt.Errorf("service reported failure: %s", r.Message)
		}
		return errors.New("service reported failure")
	}
	return nil
}

func (r *ResultsResponse) validate() error {
	if r.Tests == nil {
		return errors.New("tests is missing")
	}
	return nil
}

func (t *CompanyTest) validate() error {
	if t.CompanyName == "" {
		return errors.New("companyName is missing or empty")
	}
	if t.TestType == "" {
		return errors.New("testType is missing or empty")
	}
	if t.Questions == nil {
		return errors.New("questions is missing")
	}
	return nil
}
