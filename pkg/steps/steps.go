// Package steps is the step library: Gherkin sentences that drive a web
// application through an HTTP client or a browser and assert on what comes
// back.
//
// A Suite wires the steps into godog. Every scenario gets a fresh World
// that starts on the client backend; "Using selenium" moves it to the
// browser and "Finished using selenium" moves it back. Steps that need
// a browser (typing, clicking) are rejected before a client-mode scenario
// runs.
package steps

import (
	"regexp"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/validator"
)

// Step sentences.
const (
	UsingSelenium         = `^Using selenium$`
	FinishedUsingSelenium = `^Finished using selenium$`
	TimeoutOf             = `^a timeout of "(\d+)"$`
	AccessURL             = `^I access the url "(.*)"$`
	AccessReversedURL     = `^I access the reversed url "(.*)"$`
	ExpectRedirect        = `^I expect to be redirected from "([^"]*)" to "([^"]*)"$`
	HitTemplate           = `^I hit the template "(.*)"$`
	SeeHeader             = `^I see the header(\d+) "(.*)"$`
	ThatItsIDIs           = `^that its id is "(.*)"$`
	IfResultSeeText       = `^If the result "(.*)" is pass then I see the text "(.*)"$`
	NotLoggedIn           = `^I am not logged in$`
	RequiredFieldsPresent = `^I see that the form "(.*)" required fields are present$`
	FillField             = `^Fill the field "(.*)" with "(.*)"$`
	SleepFor              = `^Sleep for "(\d+)"$`
	ClickButton           = `^Click on "(.*)" button$`
	CheckField            = `^Check the field "(.*)" with "(checked|unchecked)"$`
	SubmissionResult      = `^Result of form submission should be "(.*)"$`
)

// definition binds a sentence to its handler and backend requirements.
type definition struct {
	pattern  string
	needs    core.Capability
	switchTo validator.Mode
	handler  func(w *World) interface{}
}

var definitions = []definition{
	{UsingSelenium, core.CapNone, validator.ModeBrowser, func(w *World) interface{} { return w.usingSelenium }},
	{FinishedUsingSelenium, core.CapNone, validator.ModeClient, func(w *World) interface{} { return w.finishedUsingSelenium }},
	{TimeoutOf, core.CapNone, validator.ModeUnchanged, func(w *World) interface{} { return w.aTimeoutOf }},
	{AccessURL, core.CapNavigate, validator.ModeUnchanged, func(w *World) interface{} { return w.accessURL }},
	{AccessReversedURL, core.CapNavigate, validator.ModeUnchanged, func(w *World) interface{} { return w.accessReversedURL }},
	{ExpectRedirect, core.CapNavigate, validator.ModeUnchanged, func(w *World) interface{} { return w.expectRedirect }},
	{HitTemplate, core.CapNone, validator.ModeUnchanged, func(w *World) interface{} { return w.hitTemplate }},
	{SeeHeader, core.CapQuery, validator.ModeUnchanged, func(w *World) interface{} { return w.seeHeader }},
	{ThatItsIDIs, core.CapQuery, validator.ModeUnchanged, func(w *World) interface{} { return w.thatItsIDIs }},
	{IfResultSeeText, core.CapTextSearch, validator.ModeUnchanged, func(w *World) interface{} { return w.ifResultSeeText }},
	{NotLoggedIn, core.CapNavigate, validator.ModeUnchanged, func(w *World) interface{} { return w.notLoggedIn }},
	{RequiredFieldsPresent, core.CapQuery, validator.ModeUnchanged, func(w *World) interface{} { return w.requiredFieldsPresent }},
	{FillField, core.CapType, validator.ModeUnchanged, func(w *World) interface{} { return w.fillField }},
	{SleepFor, core.CapNone, validator.ModeUnchanged, func(w *World) interface{} { return w.sleepFor }},
	{ClickButton, core.CapClick, validator.ModeUnchanged, func(w *World) interface{} { return w.clickButton }},
	{CheckField, core.CapQuery | core.CapClick, validator.ModeUnchanged, func(w *World) interface{} { return w.checkField }},
	{SubmissionResult, core.CapQuery, validator.ModeUnchanged, func(w *World) interface{} { return w.submissionResult }},
}

// Rules returns the validator rules for every step sentence.
func Rules() []validator.Rule {
	rules := make([]validator.Rule, len(definitions))
	for i, d := range definitions {
		rules[i] = validator.Rule{
			Pattern: regexp.MustCompile(d.pattern),
			Needs:   d.needs,
			Switch:  d.switchTo,
		}
	}
	return rules
}

// Patterns returns every step sentence regex in registration order.
func Patterns() []string {
	out := make([]string, len(definitions))
	for i, d := range definitions {
		out[i] = d.pattern
	}
	return out
}
