package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Campaign schemas with questions and branching rules as JSONB
			CREATE TABLE campaigns (
				id TEXT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				role_ids JSONB,
				questions JSONB NOT NULL,
				step_rules JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- One session per (campaign, participant) pair
			CREATE TABLE onboarding_sessions (
				id UUID PRIMARY KEY,
				campaign_id TEXT NOT NULL,
				participant_id TEXT NOT NULL,
				participant_name TEXT,
				responses JSONB NOT NULL DEFAULT '{}'::jsonb,
				current_step INTEGER NOT NULL DEFAULT 0,
				status VARCHAR(20) NOT NULL CHECK (status IN ('created', 'collecting', 'completed')),
				referral JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				last_activity_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				dispatched_at TIMESTAMP WITH TIME ZONE,
				UNIQUE (campaign_id, participant_id)
			);

			CREATE INDEX idx_onboarding_sessions_campaign ON onboarding_sessions(campaign_id);
			CREATE INDEX idx_onboarding_sessions_status ON onboarding_sessions(status);
			CREATE INDEX idx_onboarding_sessions_last_activity ON onboarding_sessions(last_activity_at);
		`,
	}
}
