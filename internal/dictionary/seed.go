package dictionary

// seedEntries is the built-in word list
func seedEntries() []Entry {
	return []Entry{
		{
			Word:         "hello",
			Language:     LangEnglish,
			Translation:  "হ্যালো, নমস্কার",
			PartOfSpeech: "noun, exclamation",
			Definition:   "Used as a greeting or to begin a phone conversation.",
			Synonyms:     []string{"hi", "hey", "greetings"},
			Antonyms:     []string{"goodbye", "farewell"},
			Examples: []Example{
				{English: "Hello, how are you today?", Bangla: "হ্যালো, আজ কেমন আছেন?"},
				{English: "She said hello to everyone at the party.", Bangla: "সে পার্টিতে সবাইকে হ্যালো বলেছিল।"},
			},
		},
		{
			Word:         "হ্যালো",
			Language:     LangBangla,
			Translation:  "hello",
			PartOfSpeech: "noun, exclamation",
			Definition:   "অভিবাদন বা টেলিফোন কথোপকথন শুরু করার জন্য ব্যবহৃত।",
			Synonyms:     []string{"নমস্কার", "সালাম"},
			Antonyms:     []string{"বিদায়", "গুড বাই"},
			Examples: []Example{
				{English: "Hello, how are you today?", Bangla: "হ্যালো, আজ কেমন আছেন?"},
			},
		},
		{
			Word:         "book",
			Language:     LangEnglish,
			Translation:  "বই, বুক",
			PartOfSpeech: "noun",
			Definition:   "A written or printed work consisting of pages glued or sewn together along one side and bound in covers.",
			Synonyms:     []string{"volume", "publication", "text"},
			Antonyms:     []string{},
			Examples: []Example{
				{English: "I read a good book yesterday.", Bangla: "আমি গতকাল একটি ভালো বই পড়েছি।"},
			},
		},
		{
			Word:         "বই",
			Language:     LangBangla,
			Translation:  "book",
			PartOfSpeech: "noun",
			Definition:   "কাগজের পাতা একসাথে বাঁধানো যার মধ্যে লেখা বা ছবি থাকে।",
			Synonyms:     []string{"গ্রন্থ", "পুস্তক"},
			Antonyms:     []string{},
			Examples: []Example{
				{English: "I read a good book yesterday.", Bangla: "আমি গতকাল একটি ভালো বই পড়েছি।"},
			},
		},
	}
}

// seedPackages is the built-in offline package catalogue. The last one
// ships preinstalled.
func seedPackages() []Package {
	return []Package{
		{Name: "Basic English-Bangla", Description: "10,000+ common words with translations", Size: "15.2 MB", Type: PackageFree},
		{Name: "Advanced Dictionary", Description: "50,000+ words with synonyms, antonyms", Size: "45.8 MB", Type: PackagePremium},
		{Name: "Technical Terms", Description: "IT, Engineering & Science vocabulary", Size: "22.1 MB", Type: PackageSpecialized},
		{Name: "Essential Vocabulary", Description: "5,000 most common words", Size: "8.5 MB", Type: PackageFree, IsDownloaded: true},
	}
}
