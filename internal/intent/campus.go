package intent

import (
	"go.uber.org/zap"
)

// campus-backend 的意图分类
const (
	Attendance  Category = "attendance"
	Results     Category = "results"
	IDCard      Category = "id_card"
	Duplicate   Category = "duplicate"
	Revaluation Category = "revaluation"
	Internship  Category = "internship"
	Leave       Category = "leave"
	Welcome     Category = "welcome"

	Thanks    Category = "thanks"
	Goodbye   Category = "goodbye"
	HowAreYou Category = "how_are_you"
)

// GenericHelp 意图没有专属回复时使用
const GenericHelp = "I can help you with fees, scholarships, exams, admissions, hostel information, and more. Could you be more specific?"

// DefaultReplies 后端未命中任何意图和闲聊时的回复
var DefaultReplies = map[string]string{
	"en": GenericHelp,
	"hi": "मैं आपकी फीस, छात्रवृत्ति, परीक्षा, प्रवेश, हॉस्टल जानकारी और बहुत कुछ में मदद कर सकता हूं। क्या आप और विशिष्ट हो सकते हैं?",
}

// DialogflowNames 意图与 Dialogflow 导出意图名的对应关系
var DialogflowNames = map[Category]string{
	Fee:         "What is the last date to pay the semester/annual fees?",
	Scholarship: "How do I apply for a scholarship in college?",
	Exam:        "When will the exam timetable be released?",
	Admission:   "How do I apply for a scholarship in college?",
	Hostel:      "How do I apply for hostel accommodation?",
	Attendance:  "What is the minimum attendance required to appear for exams?",
	Results:     "When will the results be declared?",
	IDCard:      "How can I get my ID card if it's lost?",
	Duplicate:   "How can I get a duplicate mark sheet or transcript?",
	Revaluation: "What is the process for revaluation/rechecking of answer sheets?",
	Internship:  "How can I apply for an internship/placement through college?",
	Leave:       "Can medical or genuine leave be considered in attendance?",
	Welcome:     "Welcome Intent",
}

func hi(replies ...string) map[string][]string {
	return map[string][]string{"hi": replies}
}

// RegisterCampusIntents 注册后端的校园意图
func RegisterCampusIntents(registry *Registry, logger *zap.Logger) error {
	intents := []*Definition{
		{
			Category:  Fee,
			Keywords:  []string{"fee", "fees", "payment", "pay", "फीस", "पैसा", "installment", "deadline"},
			Replies:   []string{"Fee payment deadline is announced by the accounts section each semester. Please check the academic calendar for specific dates."},
			Localized: hi("फीस की अंतिम तिथि हर सेमेस्टर में खाता अनुभाग द्वारा घोषित की जाती है। कृपया विशिष्ट तिथियों के लिए शैक्षणिक कैलेंडर देखें।"),
		},
		{
			Category:  Scholarship,
			Keywords:  []string{"scholarship", "scholar", "merit", "छात्रवृत्ति", "स्कॉलरशिप", "apply"},
			Replies:   []string{"Scholarship applications are available in the student portal. Check the scholarship section for eligibility criteria and application forms."},
			Localized: hi("छात्रवृत्ति आवेदन छात्र पोर्टल में उपलब्ध हैं। पात्रता मानदंड और आवेदन फॉर्म के लिए छात्रवृत्ति अनुभाग देखें।"),
		},
		{
			Category:  Exam,
			Keywords:  []string{"exam", "examination", "test", "date", "schedule", "परीक्षा", "टेस्ट", "timetable"},
			Replies:   []string{"Exam schedules are posted by the examination cell. Check the notice board or college website for updates."},
			Localized: hi("परीक्षा कार्यक्रम परीक्षा सेल द्वारा पोस्ट किया जाता है। अपडेट के लिए नोटिस बोर्ड या कॉलेज वेबसाइट देखें।"),
		},
		{
			Category:  Admission,
			Keywords:  []string{"admission", "admit", "apply", "application", "प्रवेश", "एडमिशन"},
			Replies:   []string{"Admission procedures are available on the college website. Contact the admission office for detailed information."},
			Localized: hi("प्रवेश प्रक्रिया कॉलेज वेबसाइट पर उपलब्ध है। विस्तृत जानकारी के लिए प्रवेश कार्यालय से संपर्क करें।"),
		},
		{
			Category:  Hostel,
			Keywords:  []string{"hostel", "accommodation", "room", "आवास", "हॉस्टल"},
			Replies:   []string{"Hostel applications are processed by the hostel administration. Visit the hostel office for application forms and procedures."},
			Localized: hi("हॉस्टल आवेदन हॉस्टल प्रशासन द्वारा संसाधित किया जाता है। आवेदन फॉर्म और प्रक्रियाओं के लिए हॉस्टल कार्यालय जाएं।"),
		},
		{
			Category:  Attendance,
			Keywords:  []string{"attendance", "present", "absent", "उपस्थिति", "हाजिरी"},
			Replies:   []string{"Minimum 75% attendance is required to appear for exams. Check your attendance record in the student portal."},
			Localized: hi("परीक्षा में बैठने के लिए न्यूनतम 75% उपस्थिति आवश्यक है। छात्र पोर्टल में अपना उपस्थिति रिकॉर्ड देखें।"),
		},
		{
			Category:  Results,
			Keywords:  []string{"result", "marks", "grade", "परिणाम", "अंक"},
			Replies:   []string{"Results are declared by the examination cell. Check the college website or notice board for updates."},
			Localized: hi("परिणाम परीक्षा सेल द्वारा घोषित किए जाते हैं। अपडेट के लिए कॉलेज वेबसाइट या नोटिस बोर्ड देखें।"),
		},
		{
			Category: IDCard,
			Keywords: []string{"id card", "identity", "card", "आईडी", "कार्ड"},
			Replies:  []string{GenericHelp},
		},
		{
			Category: Duplicate,
			Keywords: []string{"duplicate", "mark sheet", "transcript", "डुप्लिकेट", "अंकपत्र"},
			Replies:  []string{GenericHelp},
		},
		{
			Category: Revaluation,
			Keywords: []string{"revaluation", "recheck", "rechecking", "पुनर्मूल्यांकन", "पुनः जांच"},
			Replies:  []string{GenericHelp},
		},
		{
			Category: Internship,
			Keywords: []string{"internship", "placement", "job", "इंटर्नशिप", "रोजगार"},
			Replies:  []string{GenericHelp},
		},
		{
			Category: Leave,
			Keywords: []string{"leave", "medical", "genuine", "छुट्टी", "मेडिकल"},
			Replies:  []string{GenericHelp},
		},
		{
			Category:  Welcome,
			Keywords:  []string{"hello", "hi", "hey", "namaste", "नमस्ते", "नमस्कार"},
			Replies:   []string{"Hello! I'm your campus assistant. How can I help you today?"},
			Localized: hi("नमस्ते! मैं आपका कैंपस सहायक हूं। आज मैं आपकी कैसे मदद कर सकता हूं?"),
		},
	}

	for _, def := range intents {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	if err := registry.SetFallback(&Definition{Category: Default, Replies: []string{GenericHelp}, Localized: hi(DefaultReplies["hi"])}); err != nil {
		return err
	}

	logger.Info("校园意图注册完成", zap.Int("count", registry.Count()))
	return nil
}

// RegisterSmalltalk 注册闲聊分类，意图未命中时使用
func RegisterSmalltalk(registry *Registry, logger *zap.Logger) error {
	smalltalk := []*Definition{
		{
			Category:  Greeting,
			Keywords:  []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening", "namaste", "नमस्ते", "नमस्कार"},
			Replies:   []string{"Hello! How can I help you today?", "Hi there! What can I do for you?", "Good day! How can I assist you?"},
			Localized: hi("नमस्ते! आज मैं आपकी कैसे मदद कर सकता हूं?", "नमस्कार! मैं आपके लिए क्या कर सकता हूं?", "शुभ दिन! मैं आपकी कैसे सहायता कर सकता हूं?"),
		},
		{
			Category:  Thanks,
			Keywords:  []string{"thank", "thanks", "धन्यवाद", "शुक्रिया"},
			Replies:   []string{"You're welcome!", "My pleasure!", "Happy to help!"},
			Localized: hi("आपका स्वागत है!", "मेरी खुशी!", "मदद करके खुशी हुई!"),
		},
		{
			Category:  Goodbye,
			Keywords:  []string{"bye", "goodbye", "see you", "अलविदा", "फिर मिलेंगे"},
			Replies:   []string{"Goodbye! Have a great day!", "See you later!", "Take care!"},
			Localized: hi("अलविदा! आपका दिन शुभ हो!", "फिर मिलेंगे!", "अपना ख्याल रखें!"),
		},
		{
			Category:  HowAreYou,
			Keywords:  []string{"how are you", "how do you do", "आप कैसे हैं", "कैसे हो"},
			Replies:   []string{"I'm doing great, thank you! How can I help you?", "All systems are working perfectly! What can I do for you?"},
			Localized: hi("मैं बहुत अच्छा हूं, धन्यवाद! मैं आपकी कैसे मदद कर सकता हूं?", "सभी सिस्टम सही तरीके से काम कर रहे हैं! मैं आपके लिए क्या कर सकता हूं?"),
		},
	}

	for _, def := range smalltalk {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	if err := registry.SetFallback(&Definition{Category: Default, Replies: []string{"I'm here to help!"}}); err != nil {
		return err
	}

	logger.Info("闲聊分类注册完成", zap.Int("count", registry.Count()))
	return nil
}
