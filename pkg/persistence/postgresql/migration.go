package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create automations table
			CREATE TABLE automations (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(255) NOT NULL,
				trigger_config JSONB,
				conditions JSONB,
				actions JSONB NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT false,
				run_count BIGINT NOT NULL DEFAULT 0,
				last_run_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_automations_trigger_type ON automations(trigger_type);
			CREATE INDEX idx_automations_enabled ON automations(enabled);

			-- Create workflows table
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(255) NOT NULL,
				conditions JSONB,
				steps JSONB NOT NULL,
				run_once_per_contact BOOLEAN NOT NULL DEFAULT false,
				enabled BOOLEAN NOT NULL DEFAULT false,
				enrollment_count BIGINT NOT NULL DEFAULT 0,
				last_enrolled_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_trigger_type ON workflows(trigger_type);
			CREATE INDEX idx_workflows_enabled ON workflows(enabled);
		`,
		2: `
			-- Create enrollments table
			CREATE TABLE enrollments (
				id UUID PRIMARY KEY,
				kind VARCHAR(50) NOT NULL CHECK (kind IN ('workflow', 'automation')),
				workflow_id UUID,
				automation_id UUID,
				contact_id VARCHAR(255) NOT NULL,
				current_step_index INT NOT NULL DEFAULT 0,
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'completed', 'failed', 'exited')),
				next_run_at TIMESTAMP WITH TIME ZONE,
				attempts INT NOT NULL DEFAULT 0,
				trigger_data JSONB,
				last_step_at TIMESTAMP WITH TIME ZONE,
				error TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_enrollments_contact_id ON enrollments(contact_id);
			CREATE INDEX idx_enrollments_workflow_contact ON enrollments(workflow_id, contact_id);
			CREATE INDEX idx_enrollments_due ON enrollments(next_run_at) WHERE status = 'active';
		`,
		3: `
			-- Create execution_logs table (append only)
			CREATE TABLE execution_logs (
				id UUID PRIMARY KEY,
				automation_id UUID,
				workflow_id UUID,
				enrollment_id UUID,
				contact_id VARCHAR(255),
				step_index INT NOT NULL DEFAULT 0,
				step_type VARCHAR(255),
				status VARCHAR(50) NOT NULL CHECK (status IN ('success', 'failed', 'skipped')),
				trigger_data JSONB,
				error TEXT,
				executed_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_execution_logs_automation_id ON execution_logs(automation_id);
			CREATE INDEX idx_execution_logs_enrollment_id ON execution_logs(enrollment_id);
			CREATE INDEX idx_execution_logs_executed_at ON execution_logs(executed_at);
		`,
	}
}
