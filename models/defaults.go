package models

// Built-in definitions, seeded when no seed file is configured.
// IDs left empty are derived from the name by the seed loader.

var DefaultBadges = []BadgeDefinition{
	{
		Name:        "First Steps",
		Description: "Earned your first XP",
		Category:    "milestone",
		Rarity:      "common",
		Condition:   UnlockCondition{Type: ConditionNumeric, Metric: "totalXPEarned", Target: 1},
	},
	{
		Name:        "Deep Focus",
		Description: "Completed 10 focus sessions",
		Category:    "focus",
		Rarity:      "common",
		Condition:   UnlockCondition{Type: ConditionNumeric, Metric: "activityCounts.focusSessions", Target: 10},
	},
	{
		Name:        "Week Warrior",
		Description: "Active 7 days in a row",
		Category:    "streak",
		Rarity:      "rare",
		Condition:   UnlockCondition{Type: ConditionStreak, Metric: "streakData.currentStreak", Target: 7},
	},
	{
		Name:        "Unstoppable",
		Description: "Active 30 days in a row",
		Category:    "streak",
		Rarity:      "epic",
		Condition:   UnlockCondition{Type: ConditionStreak, Metric: "streakData.currentStreak", Target: 30},
	},
	{
		Name:        "Mindful",
		Description: "Logged 20 wellbeing check-ins",
		Category:    "wellness",
		Rarity:      "rare",
		Condition:   UnlockCondition{Type: ConditionNumeric, Metric: "activityCounts.wellnessCheckins", Target: 20},
	},
	{
		Name:        "Community Voice",
		Description: "Earned 500 XP helping others",
		Category:    "social",
		Rarity:      "rare",
		Condition:   UnlockCondition{Type: ConditionSocial, Metric: "xpSources.community", Target: 500},
	},
	{
		Name:        "Marathoner",
		Description: "Active on 100 different days",
		Category:    "time",
		Rarity:      "epic",
		Condition:   UnlockCondition{Type: ConditionTime, Metric: "streakData.totalActiveDays", Target: 100},
	},
	{
		Name:        "Flawless Week",
		Description: "Hit every daily goal on 7 days",
		Category:    "wellness",
		Rarity:      "epic",
		Condition:   UnlockCondition{Type: ConditionPerfectScore, Target: 7},
	},
	{
		Name:        "Polymath",
		Description: "Completed 3 skill achievements",
		Category:    "skills",
		Rarity:      "epic",
		Condition:   UnlockCondition{Type: ConditionSkill, Target: 3},
	},
	{
		Name:        "Trailblazer",
		Description: "Completed 5 milestone achievements",
		Category:    "milestone",
		Rarity:      "legendary",
		Condition:   UnlockCondition{Type: ConditionMilestone, Target: 5},
	},
	{
		Name:        "Night Owl",
		Description: "A secret badge",
		Category:    "secret",
		Rarity:      "legendary",
		Condition:   UnlockCondition{Type: ConditionHidden, Metric: "activityCounts.lateNightSessions", Target: 1},
	},
}

var DefaultAchievements = []AchievementDefinition{
	{
		Name:      "Focus Apprentice",
		Category:  CategorySkills,
		Condition: UnlockCondition{Type: ConditionNumeric, Metric: "xpSources.focusSessions", Target: 1000},
		Reward:    AchievementReward{XP: 50},
	},
	{
		Name:      "Task Crusher",
		Category:  CategorySkills,
		Condition: UnlockCondition{Type: ConditionNumeric, Metric: "activityCounts.tasks", Target: 50},
		Reward:    AchievementReward{XP: 50},
	},
	{
		Name:      "Project Finisher",
		Category:  CategorySkills,
		Condition: UnlockCondition{Type: ConditionNumeric, Metric: "activityCounts.projects", Target: 5},
		Reward:    AchievementReward{XP: 100},
	},
	{
		Name:      "Level 10",
		Category:  CategoryMilestone,
		Condition: UnlockCondition{Type: ConditionNumeric, Metric: "currentLevel", Target: 10},
		Reward:    AchievementReward{XP: 100},
	},
	{
		Name:      "Level 25",
		Category:  CategoryMilestone,
		Condition: UnlockCondition{Type: ConditionNumeric, Metric: "currentLevel", Target: 25},
		Reward:    AchievementReward{XP: 250},
	},
	{
		Name:      "Two Week Streak",
		Category:  CategoryMilestone,
		Condition: UnlockCondition{Type: ConditionStreak, Metric: "streakData.longestStreak", Target: 14},
		Reward:    AchievementReward{XP: 150, BadgeID: "week-warrior"},
	},
	{
		Name:      "Wellbeing Regular",
		Category:  "wellness",
		Condition: UnlockCondition{Type: ConditionNumeric, Metric: "activityCounts.wellnessCheckins", Target: 30},
		Reward:    AchievementReward{XP: 75, BadgeID: "mindful"},
	},
}
