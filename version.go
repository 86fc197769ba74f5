package kai

// Version is the published client version.
// 0.4.0: Add v6 approval flow (ApproveTool/RejectTool) alongside the legacy
// ConfirmTool/DenyTool pair; surface ToolApprovalRequestEvent and pending
// approval tracking on the Accumulator.
// 0.3.0: Breaking - replace loosely-typed stream events with the closed
// Event sum type; decode failures on non-terminal frames are now recorded
// and skipped instead of aborting the stream.
// 0.2.0: Add History, DeleteChat, and voting endpoints.
const Version = "0.4.0"
