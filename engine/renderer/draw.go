package renderer

import "github.com/spaghettifunk/orrery/engine/renderer/metadata"

/**
 * @brief Records a textured draw of one mesh: material at group 0,
 * camera at 1 and light at 2.
 * @param instance The slot of the model transform in the instance buffer.
 */
func DrawMesh(pass metadata.RenderPass, mesh *Mesh, material *Material, camera, light metadata.BindGroup, instance uint32) {
	pass.SetVertexBuffer(0, mesh.VertexBuffer)
	pass.SetIndexBuffer(mesh.IndexBuffer, metadata.IndexFormatUint32)
	pass.SetBindGroup(0, material.BindGroup)
	pass.SetBindGroup(1, camera)
	pass.SetBindGroup(2, light)
	pass.DrawIndexed(mesh.NumElements, 1, 0, 0, instance)
}

// DrawModel draws every mesh of the model with its own material, in parsed order.
func DrawModel(pass metadata.RenderPass, model *Model, camera, light metadata.BindGroup, instance uint32) {
	for _, mesh := range model.Meshes {
		DrawMesh(pass, mesh, model.Materials[mesh.Material], camera, light, instance)
	}
}

// DrawLightMesh draws the mesh with camera at group 0 and light at 1. No material is bound.
func DrawLightMesh(pass metadata.RenderPass, mesh *Mesh, camera, light metadata.BindGroup, instance uint32) {
	pass.SetVertexBuffer(0, mesh.VertexBuffer)
	pass.SetIndexBuffer(mesh.IndexBuffer, metadata.IndexFormatUint32)
	pass.SetBindGroup(0, camera)
	pass.SetBindGroup(1, light)
	pass.DrawIndexed(mesh.NumElements, 1, 0, 0, instance)
}

func DrawLightModel(pass metadata.RenderPass, model *Model, camera, light metadata.BindGroup, instance uint32) {
	for _, mesh := range model.Meshes {
		DrawLightMesh(pass, mesh, camera, light, instance)
	}
}
