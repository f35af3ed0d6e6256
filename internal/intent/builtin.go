package intent

import (
	"go.uber.org/zap"
)

// RegisterBuiltinCategories 注册组件内置的校园分类，注册顺序即匹配优先级
func RegisterBuiltinCategories(registry *Registry, logger *zap.Logger) error {
	logger.Info("注册内置分类...")

	categories := []*Definition{
		{
			Category:    Greeting,
			Description: "问候",
			Keywords:    []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"},
			Replies: []string{
				"Hello! I'm your campus assistant. How can I help you today?",
				"Hi there! I'm here to assist you with campus-related queries. What would you like to know?",
				"Welcome! I can help you with fees, scholarships, exams, admissions, and more. What do you need?",
			},
		},
		{
			Category:    Fee,
			Description: "学费缴纳与截止日期",
			Keywords:    []string{"fee", "fees", "payment", "pay", "फीस", "पैसा"},
			Replies: []string{
				"Fee payment deadline is the 15th of every month. You can pay online through the student portal or visit the accounts office.",
				"For fee-related queries, please check the fee structure on our website. Late fees apply after the 15th of each month.",
				"You can pay your fees through multiple methods: online portal, bank transfer, or cash at the accounts office.",
			},
		},
		{
			Category:    Scholarship,
			Description: "奖学金申请",
			Keywords:    []string{"scholarship", "scholar", "merit", "छात्रवृत्ति", "स्कॉलरशिप"},
			Replies: []string{
				"Scholarship applications are open from August 1st to September 30th. Check the notice board for eligibility criteria and application forms.",
				"We offer various scholarships including merit-based, need-based, and special category scholarships. Visit the scholarship office for details.",
				"Scholarship results will be announced in October. Keep checking the college website for updates.",
			},
		},
		{
			Category:    Exam,
			Description: "考试安排",
			Keywords:    []string{"exam", "examination", "test", "date", "schedule", "परीक्षा", "टेस्ट"},
			Replies: []string{
				"Mid-semester exams start on October 12th. The detailed timetable will be posted on the notice board tomorrow.",
				"Exam schedules are available on the college website. Make sure to check for any updates or changes.",
				"For exam-related queries, contact the examination cell or check the official notice board.",
			},
		},
		{
			Category:    Admission,
			Description: "招生入学",
			Keywords:    []string{"admission", "admit", "apply", "application", "प्रवेश", "एडमिशन"},
			Replies: []string{
				"Admissions are merit-based. Check the official website for current year cutoffs and application procedures.",
				"The admission process includes online application, document verification, and counseling. Visit the admission office for assistance.",
				"For admission queries, you can contact the admission cell or visit the college during office hours.",
			},
		},
		{
			Category:    Hostel,
			Description: "宿舍",
			Keywords:    []string{"hostel", "accommodation", "room", "आवास", "हॉस्टल"},
			Replies: []string{
				"Hostel allotment list will be published next week. Contact the warden's office for detailed information about facilities and rules.",
				"Our hostels provide modern amenities including WiFi, mess facilities, and 24/7 security. Application forms are available at the hostel office.",
				"Hostel fees and rules are available on the college website. For specific queries, visit the hostel administration office.",
			},
		},
	}

	for _, def := range categories {
		if err := registry.Register(def); err != nil {
			return err
		}
	}

	err := registry.SetFallback(&Definition{
		Category:    Default,
		Description: "未命中任何分类",
		Replies: []string{
			"I can help you with fees, scholarships, exam dates, admissions, hostel information, and more. Could you be more specific?",
			"That's an interesting question! I'm designed to help with campus-related queries. Try asking about fees, exams, or admissions.",
			"I'm here to assist with campus information. You can ask me about academic schedules, fees, scholarships, or any college-related topic.",
		},
	})
	if err != nil {
		return err
	}

	logger.Info("内置分类注册完成", zap.Int("count", registry.Count()))
	return nil
}

// NewBuiltinCatalog 创建并校验内置分类目录
func NewBuiltinCatalog(logger *zap.Logger) (*Registry, error) {
	registry := NewRegistry(logger)
	if err := RegisterBuiltinCategories(registry, logger); err != nil {
		return nil, err
	}
	required := append(append([]Category(nil), PriorityOrder...), Default)
	if err := registry.Validate(required...); err != nil {
		return nil, err
	}
	return registry, nil
}
