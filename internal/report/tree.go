package report

import (
	"github.com/ppiankov/modwatch/internal/dialog"
	"github.com/ppiankov/modwatch/internal/model"
)

// Keywords typed by the reporter
const (
	StartKeyword  = "report"
	CancelKeyword = "cancel"
	HelpKeyword   = "help"
	FinishKeyword = "done"
)

// Decision tree steps
const (
	StepAbuseType       dialog.Step = "abuse-type"
	StepManipulated     dialog.Step = "manipulated"
	StepCounterEvidence dialog.Step = "counter-evidence"
	StepImposter        dialog.Step = "imposter"
	StepOriginalContext dialog.Step = "original-context"
	StepRealOrg         dialog.Step = "real-org"
	StepEvidenceText    dialog.Step = "evidence-text"
	StepIntent          dialog.Step = "intent"
	StepBlock           dialog.Step = "block"
)

// Prompt texts; answers are recorded under these keys
const (
	AbusePrompt           = "Select the abuse type"
	ManipulatedPrompt     = "How has this content been manipulated?"
	CounterEvidencePrompt = "Do you have counter evidence from a reputable source?"
	ImposterPrompt        = "Is this impersonating a real person or organization?"
	OriginalContextPrompt = "Do you have the original context?"
	RealOrgPrompt         = "Do you know who the real person or organization being impersonated is?"
	IntentPrompt          = "Do you think this misinformation was posted with intention to deceive?"
	BlockPrompt           = "Do you want to block the user?"
	SubmitEvidenceMessage = "Please submit the URL or relevant context."
	ThankYouMessage       = "Thank you for your report. Our content moderation team will take a look at the report and take appropriate action."
)

// Option labels
const (
	LabelManipulated  = "Manipulated or Distorted Content"
	LabelFake         = "Completely Fake Content"
	LabelImposter     = "Imposter Content"
	LabelOutOfContext = "Out of Context"

	LabelModifiedSource = "Modified from Original Source"
	LabelMissingInfo    = "Leaving out Important Information"
	LabelExaggeration   = "Misleading Exaggeration"

	LabelImpersonator = "I think this is an imposter"
	LabelFakePerson   = "I think this is a fake person"

	LabelYes = "Yes"
	LabelNo  = "No"
)

// Replies
const (
	HelpText = "Use the `report` command to begin the reporting process.\n" +
		"Use the `cancel` command to cancel the report process.\n"
	IntroMessage = "Thank you for starting the reporting process. " +
		"Say `help` at any time for more information.\n\n" +
		"Please copy paste the link to the message you want to report.\n" +
		"You can obtain this link by right-clicking the message and clicking `Copy Message Link`."
	CanceledMessage     = "Report cancelled."
	FinishedMessage     = "Report finished."
	SelectReasonMessage = "Please select a reason from the above list."
	FinishHintMessage   = "Please type 'done' to finish your report."
)

// categories maps the abuse options to misinformation types
var categories = map[string]model.MisinfoType{
	LabelManipulated:  model.MisinfoManipulated,
	LabelFake:         model.MisinfoFake,
	LabelImposter:     model.MisinfoImposter,
	LabelOutOfContext: model.MisinfoOutOfContext,
}

// Weight is the severity added by choosing an abuse category
func Weight(t model.MisinfoType) int {
	switch t {
	case model.MisinfoManipulated:
		return 4
	case model.MisinfoFake:
		return 3
	case model.MisinfoImposter:
		return 2
	case model.MisinfoOutOfContext:
		return 1
	default:
		return 0
	}
}

var prompts = map[dialog.Step]dialog.Prompt{
	StepAbuseType: {Step: StepAbuseType, Text: AbusePrompt, Options: []dialog.Option{
		{Label: LabelManipulated, Description: "Distortion of information"},
		{Label: LabelFake, Description: "Completely false content"},
		{Label: LabelImposter, Description: "Impersonation of genuine source"},
		{Label: LabelOutOfContext, Description: "Accurate factual content used in a false context"},
	}},
	StepManipulated: {Step: StepManipulated, Text: ManipulatedPrompt, Options: []dialog.Option{
		{Label: LabelModifiedSource},
		{Label: LabelMissingInfo},
		{Label: LabelExaggeration},
	}},
	StepImposter: {Step: StepImposter, Text: ImposterPrompt, Options: []dialog.Option{
		{Label: LabelImpersonator, Description: "This post is made by someone pretending to be someone they are not"},
		{Label: LabelFakePerson, Description: "This post is made by a user that doesn't actually exist (e.g. bot)"},
	}},
	StepCounterEvidence: {Step: StepCounterEvidence, Text: CounterEvidencePrompt, Options: dialog.YesNo()},
	StepOriginalContext: {Step: StepOriginalContext, Text: OriginalContextPrompt, Options: dialog.YesNo()},
	StepRealOrg:         {Step: StepRealOrg, Text: RealOrgPrompt, Options: dialog.YesNo()},
	StepIntent:          {Step: StepIntent, Text: IntentPrompt, Options: dialog.YesNo()},
	StepBlock:           {Step: StepBlock, Text: BlockPrompt, Options: dialog.YesNo()},
	StepEvidenceText:    {Step: StepEvidenceText, Text: SubmitEvidenceMessage},
}

// PromptFor returns a copy of the prompt for step
func PromptFor(step dialog.Step) (dialog.Prompt, bool) {
	p, ok := prompts[step]
	if !ok {
		return dialog.Prompt{}, false
	}
	p.Options = append([]dialog.Option(nil), p.Options...)
	return p, true
}
