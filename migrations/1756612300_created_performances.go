package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "pbc_perform_000001",
			"name": "performances",
			"type": "base",
			"system": false,
			"fields": [
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text_perf_entry_id",
					"max": 0,
					"min": 0,
					"name": "entry_id",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": true,
					"system": false,
					"type": "text"
				},
				{
					"cascadeDelete": false,
					"collectionId": "pbc_venues_000001",
					"hidden": false,
					"id": "relation_perf_venue",
					"maxSelect": 1,
					"minSelect": 0,
					"name": "venue",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "relation"
				},
				{
					"cascadeDelete": false,
					"collectionId": "_pb_users_auth_",
					"hidden": false,
					"id": "relation_perf_singer",
					"maxSelect": 1,
					"minSelect": 0,
					"name": "singer",
					"presentable": false,
					"required": false,
					"system": false,
					"type": "relation"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text_perf_singer_name",
					"max": 0,
					"min": 0,
					"name": "singer_name",
					"pattern": "",
					"presentable": true,
					"primaryKey": false,
					"required": false,
					"system": false,
					"type": "text"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text_perf_title",
					"max": 0,
					"min": 1,
					"name": "title",
					"pattern": "",
					"presentable": true,
					"primaryKey": false,
					"required": true,
					"system": false,
					"type": "text"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text_perf_artist",
					"max": 0,
					"min": 0,
					"name": "artist",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": false,
					"system": false,
					"type": "text"
				},
				{
					"hidden": false,
					"id": "select_perf_status",
					"maxSelect": 1,
					"name": "status",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "select",
					"values": [
						"completed",
						"skipped"
					]
				},
				{
					"hidden": false,
					"id": "number_perf_position",
					"max": null,
					"min": 0,
					"name": "position",
					"onlyInt": true,
					"presentable": false,
					"required": false,
					"system": false,
					"type": "number"
				},
				{
					"hidden": false,
					"id": "date_perf_requested",
					"max": "",
					"min": "",
					"name": "requested_at",
					"presentable": false,
					"required": false,
					"system": false,
					"type": "date"
				},
				{
					"hidden": false,
					"id": "date_perf_completed",
					"max": "",
					"min": "",
					"name": "completed_at",
					"presentable": false,
					"required": false,
					"system": false,
					"type": "date"
				}
			],
			"indexes": [
				"CREATE INDEX idx_performances_venue ON performances (venue)",
				"CREATE UNIQUE INDEX idx_performances_entry ON performances (entry_id)"
			],
			"listRule": "",
			"viewRule": "",
			"createRule": null,
			"updateRule": null,
			"deleteRule": null
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("pbc_perform_000001")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
