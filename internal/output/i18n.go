// Package output renders human and machine readable results: context
// packs, plan listings, and IDE-ready prompts.
package output

var translations = map[string]map[string]string{
	"en": {
		"parsed_intent":       "PARSED INTENT",
		"cid":                 "CID",
		"job_id":              "Job ID",
		"letter_number":       "Letter number",
		"keywords":            "Keywords",
		"raw_title":           "Raw title",
		"selected_bundle":     "SELECTED BUNDLE",
		"bundle_candidates":   "BUNDLE CANDIDATES",
		"files_to_open":       "FILES TO OPEN",
		"other_candidates":    "OTHER CANDIDATES",
		"no_matching_procs":   "(no matching procs found)",
		"no_files":            "(no files)",
		"files":               "files",
		"cursor_title":        "LSA Bundle Plan",
		"cursor_intro":        "Analysis of a legacy document-generation bundle. Use ONLY files from the snapshot root below.",
		"cursor_instructions": "Instructions",
		"cursor_step_1":       "Open files from `selected_bundle.files` (abs_path).",
		"cursor_step_2":       "Explain where the letter is defined and which files are involved.",
		"cursor_step_3":       "Suggest minimal edits with code quotes.",
		"cursor_step_4":       "Create an edit plan with exact code quotes.",
		"cursor_step_5":       "Provide a verification checklist.",
		"cursor_step_6":       "Prepare a ticket-ready change request.",
		"cursor_step_7":       "Be concise.",
		"cursor_data":         "Plan data",
	},
	"ru": {
		"parsed_intent":       "РАЗОБРАННОЕ НАМЕРЕНИЕ",
		"cid":                 "CID",
		"job_id":              "Job ID",
		"letter_number":       "Номер письма",
		"keywords":            "Ключевые слова",
		"raw_title":           "Исходный заголовок",
		"selected_bundle":     "ВЫБРАННЫЙ ПАКЕТ",
		"bundle_candidates":   "КАНДИДАТЫ",
		"files_to_open":       "ФАЙЛЫ ДЛЯ ОТКРЫТИЯ",
		"other_candidates":    "ОСТАЛЬНЫЕ КАНДИДАТЫ",
		"no_matching_procs":   "(подходящие proc не найдены)",
		"no_files":            "(нет файлов)",
		"files":               "файлов",
		"cursor_title":        "LSA — план пакета",
		"cursor_intro":        "Анализ legacy-пакета генерации документов. Используй ТОЛЬКО файлы из snapshot root ниже.",
		"cursor_instructions": "Инструкции",
		"cursor_step_1":       "Открой файлы из `selected_bundle.files` (abs_path).",
		"cursor_step_2":       "Объясни, где определено письмо (letter) и какие файлы участвуют.",
		"cursor_step_3":       "Предложи минимальные правки с цитатами из кода.",
		"cursor_step_4":       "Составь план изменений (edit plan) с точными цитатами.",
		"cursor_step_5":       "Дай checklist для верификации.",
		"cursor_step_6":       "Подготовь change request для тикета.",
		"cursor_step_7":       "Отвечай кратко.",
		"cursor_data":         "Данные плана",
	},
}

// tr looks up a translated string, falling back to English
func tr(key, lang string) string {
	if m, ok := translations[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := translations["en"][key]; ok {
		return s
	}
	return key
}
