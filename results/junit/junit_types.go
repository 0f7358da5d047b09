package junit

import "encoding/xml"

// JUnit XML structures following the standard schema.
// Reference: https://llg.cubic.org/docs/junit/

// TestSuites is the root element of a JUnit XML document.
type TestSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Errors   int          `xml:"errors,attr"`
	Suites   []*TestSuite `xml:"testsuite"`
}

// TestSuite groups the test cases of one pathway run.
type TestSuite struct {
	XMLName    xml.Name   `xml:"testsuite"`
	Name       string     `xml:"name,attr"`
	Tests      int        `xml:"tests,attr"`
	Failures   int        `xml:"failures,attr"`
	Errors     int        `xml:"errors,attr"`
	Timestamp  string     `xml:"timestamp,attr"`
	Properties []Property `xml:"properties>property,omitempty"`
	TestCases  []TestCase `xml:"testcase"`
}

// Property is a key-value annotation on a suite or case.
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// TestCase is a single persona conversation.
type TestCase struct {
	XMLName    xml.Name   `xml:"testcase"`
	Name       string     `xml:"name,attr"`
	Classname  string     `xml:"classname,attr"`
	Failure    *Failure   `xml:"failure,omitempty"`
	Error      *Error     `xml:"error,omitempty"`
	Properties []Property `xml:"properties>property,omitempty"`
}

// Failure marks a persona whose variable match rate fell below threshold.
type Failure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// Error marks a persona whose conversation aborted before producing a result.
type Error struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}
