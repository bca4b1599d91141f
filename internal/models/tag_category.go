// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package models

// TagCategory groups tags for quick selection by clients.
type TagCategory struct {
	Code string   `json:"code"`
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// TagCategories returns the fixed tag catalogue. Tag values are data and are
// kept exactly as users store them, so they line up with the affinity table.
func TagCategories() []TagCategory {
	return []TagCategory{
		{Code: "PROGRAMMING_LANGUAGE", Name: "Programming language", Tags: []string{
			"Java", "Python", "JavaScript", "TypeScript", "Go", "C++", "C", "C#", "PHP", "Ruby", "Rust", "Swift", "Kotlin",
		}},
		{Code: "FRAMEWORK", Name: "Framework and library", Tags: []string{
			"Spring Boot", "Spring Cloud", "MyBatis", "Hibernate",
			"React", "Vue", "Angular", "Next.js", "Nuxt.js",
			"Django", "Flask", "FastAPI",
			"Flutter", "React Native",
			".NET Core", "Entity Framework",
		}},
		{Code: "DIRECTION", Name: "Direction", Tags: []string{
			"前端", "后端", "全栈", "移动端", "桌面端", "DevOps", "算法", "测试", "运维", "架构",
		}},
		{Code: "DATABASE", Name: "Database", Tags: []string{
			"MySQL", "PostgreSQL", "Oracle", "SQL Server", "MongoDB", "Redis", "Elasticsearch", "ClickHouse",
		}},
		{Code: "EXPERIENCE", Name: "Experience", Tags: []string{
			"在校生", "实习生", "应届生", "1-3年", "3-5年", "5-10年", "10年以上",
		}},
		{Code: "STATUS", Name: "Looking for", Tags: []string{
			"找项目", "找队友", "找实习", "找全职", "学习交流", "技术分享", "创业",
		}},
		{Code: "OTHER", Name: "Other", Tags: []string{
			"开源贡献", "技术博客", "GitHub", "Stack Overflow", "LeetCode", "算法竞赛", "黑客松",
		}},
	}
}

// CategoryOf returns the category code holding tag, or "" if none does.
func CategoryOf(tag string) string {
	for _, c := range TagCategories() {
		for _, t := range c.Tags {
			if t == tag {
				return c.Code
			}
		}
	}
	return ""
}
